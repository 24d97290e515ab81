package llm

import "context"

// BillFields is the normalized shape we want from the model. The JSON keys
// match the labels the extraction prompt asks for, so the model response
// unmarshals directly. A field the model could not read is an empty string.
type BillFields struct {
	PumpName string `json:"Petrol Pump Name"`
	BillDate string `json:"Date"` // DD/MM/YYYY
	Product  string `json:"Product"`
	Volume   string `json:"Volume(L)"`
	Rate     string `json:"Rate per Litre"`
	Total    string `json:"Total Amount (Rs)"`
}

// ExtractRequest carries one page bitmap to the model.
type ExtractRequest struct {
	ImageData    []byte
	MIMEType     string // image/png or image/jpeg
	FilenameHint string
}

// FieldExtractor is the interface the pipeline depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (BillFields, []byte /*rawJSON*/, error)
}

// Pinger reports whether the model endpoint is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
