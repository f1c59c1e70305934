package application

import (
	"time"

	readings "mobility-cloud/internal/readings/domain"
)

// ReadingView is the wire shape shared by the historical query responses
// and the live stream events. Fields of the variant not in use are omitted.
type ReadingView struct {
	DistanceCM  *float64 `json:"distancia_cm,omitempty"`
	Temperature *float64 `json:"temperatura,omitempty"`
	Humidity    *float64 `json:"umidade,omitempty"`
	Period      string   `json:"periodo,omitempty"`
	Alert       bool     `json:"alerta"`
	Time        string   `json:"data_hora"`
}

// HourCount is one hour bucket of the alert histogram.
type HourCount struct {
	Hour   int `json:"hora"`
	Alerts int `json:"alertas"`
}

// AlertHistogram is the dense 24-bucket alerts-per-hour response for one
// civil day.
type AlertHistogram struct {
	Day     string      `json:"data"`
	Buckets []HourCount `json:"dados"`
}

// ViewOf shapes a persisted reading for viewers. Timestamps are rendered as
// wall-clock time of day; temperature readings carry the derived
// time-of-day label.
func ViewOf(reading readings.Reading) ReadingView {
	view := ReadingView{
		DistanceCM:  reading.DistanceCM,
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		Alert:       reading.Alert,
		Time:        reading.At.Format("15:04:05"),
	}
	if reading.Temperature != nil {
		view.Period = readings.PeriodOfDay(reading.At.Hour())
	}
	return view
}

// Clock abstracts time for the services.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }
