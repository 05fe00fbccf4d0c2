package models

import "time"

// Bar represents one OHLCV sample for a fixed time interval.
type Bar struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Tick is a single trade print from the live market stream.
type Tick struct {
	Symbol string
	Price  float64
	Volume float64
	TS     time.Time
}
