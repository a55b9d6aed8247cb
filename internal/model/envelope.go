package model

// Envelope is the payload consumed from the churn.records topic.
type Envelope struct {
	ID     string    `json:"id"` // upstream event id
	Record RawRecord `json:"record"`
}

// PredictionEvent is the retention alert posted for a high-risk customer.
type PredictionEvent struct {
	ID              string     `json:"id"`
	BatchID         string     `json:"batch_id,omitempty"`
	CustomerID      string     `json:"customer_id"`
	Prediction      Prediction `json:"prediction"`
	ModelVersion    string     `json:"model_version"`
	Recommendations []string   `json:"recommendations,omitempty"`
}
