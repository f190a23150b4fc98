package toolbox

import "time"

// Note is a short piece of text saved by the model on the user's behalf.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Tags      string    `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Weather is a canned forecast returned by get_weather.
type Weather struct {
	City        string `json:"city"`
	Condition   string `json:"condition"`
	Temperature int    `json:"temperature_c"`
	Humidity    int    `json:"humidity_pct"`
}
