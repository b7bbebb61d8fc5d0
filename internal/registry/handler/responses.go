package handler

import (
	"time"

	"registrar/internal/registry/fees"
	"registrar/internal/registry/models"
	"registrar/internal/registry/name"
)

// RecordResponse is the HTTP representation of a domain record.
type RecordResponse struct {
	Name         string    `json:"name"`
	TLD          string    `json:"tld"`
	Owner        string    `json:"owner"`
	Target       string    `json:"target"`
	RegisteredAt time.Time `json:"registered_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Expired      bool      `json:"expired"`
}

// FromRecord builds the response for a stored record.
func FromRecord(rawName string, record *models.DomainRecord, now time.Time) RecordResponse {
	return RecordResponse{
		Name:         name.Canonicalize(rawName),
		TLD:          record.TLD,
		Owner:        record.Owner.String(),
		Target:       record.ResolvesTo.String(),
		RegisteredAt: record.RegisteredAt,
		ExpiresAt:    record.ExpiresAt,
		Expired:      record.IsExpired(now),
	}
}

// ResolveResponse is the HTTP representation of a resolution result. Target
// holds the null identity when the name is absent or expired.
type ResolveResponse struct {
	Target     string `json:"target"`
	Registered bool   `json:"registered"`
}

// AvailabilityResponse reports whether a key can be registered.
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

// BatchResponse lists the keys a batch registration created.
type BatchResponse struct {
	Domains []string `json:"domains"`
	Count   int      `json:"count"`
}

// FromBatch builds the response for a completed batch.
func FromBatch(keys []models.RecordKey) BatchResponse {
	domains := make([]string, len(keys))
	for i, key := range keys {
		domains[i] = key.String()
	}
	return BatchResponse{Domains: domains, Count: len(domains)}
}

// TLDListResponse lists the registrable suffixes.
type TLDListResponse struct {
	TLDs []string `json:"tlds"`
}

// FeeScheduleResponse maps effective character counts to annual prices.
type FeeScheduleResponse struct {
	Prices map[string]int64 `json:"prices"`
}

// FromFeeSchedule builds the fee listing. Bucket zero is reported as the
// catch-all "default" entry.
func FromFeeSchedule(snapshot map[fees.Bucket]fees.Amount) FeeScheduleResponse {
	prices := make(map[string]int64, len(snapshot))
	for bucket, amount := range snapshot {
		prices[bucket.Label()] = int64(amount)
	}
	return FeeScheduleResponse{Prices: prices}
}
