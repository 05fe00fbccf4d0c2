package models

// Requests for feature HTTP endpoints. Defined in domain for consistency and reuse.

type FeaturesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"600" validate:"gte=10,lte=5000"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
}

type SeriesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Path   string `query:"path" json:"path" validate:"required"`
	N      int    `query:"n" json:"n" default:"600" validate:"gte=10,lte=5000"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
	Tail   int    `query:"tail" json:"tail" default:"0" validate:"gte=0,lte=5000"`
}

type BarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"10000" validate:"gte=1,lte=50000"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
}
