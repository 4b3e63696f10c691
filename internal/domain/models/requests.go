package models

// Requests for the HTTP endpoints.

type SnapshotRequest struct {
	Refresh bool `query:"refresh" json:"refresh"`
}

type VolumeRequest struct {
	N int `query:"n" json:"n" default:"20" validate:"gte=1,lte=500"`
}

type SignalsRequest struct {
	N int `query:"n" json:"n" default:"10" validate:"gte=1,lte=100"`
}
