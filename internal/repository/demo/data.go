package demo

import (
	models "flowbot/internal/domain/models/assistant"
)

// CaseID is the only case the demo backend knows.
const CaseID = "demo-case"

var sampleEvidence = []models.Evidence{
	{
		ID: "ev-101", Type: "message", Source: "WhatsApp", Device: "iPhone 13 (Alex)",
		Timestamp: "2024-03-14T21:02:00Z", Confidence: 0.94,
		Content: "Meet me at the marina at 11. Bring the drive.",
		Entities: []models.Entity{
			{Type: "Contact", Value: "Sam Okafor"},
			{Type: "Phone", Value: "+971501234567"},
		},
	},
	{
		ID: "ev-102", Type: "message", Source: "WhatsApp", Device: "iPhone 13 (Alex)",
		Timestamp: "2024-03-14T21:05:00Z", Confidence: 0.91,
		Content: "ok. sending 0.8 BTC first like we said",
		Entities: []models.Entity{
			{Type: "Contact", Value: "Sam Okafor"},
			{Type: "CryptoAddress", Value: "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"},
		},
	},
	{
		ID: "ev-103", Type: "call", Source: "Call Log", Device: "iPhone 13 (Alex)",
		Timestamp: "2024-03-14T22:40:00Z", Confidence: 0.99,
		Content: "Outgoing call to Sam Okafor, 4m12s",
		Entities: []models.Entity{
			{Type: "Contact", Value: "Sam Okafor"},
			{Type: "Phone", Value: "+971501234567"},
		},
	},
	{
		ID: "ev-104", Type: "location", Source: "Google Maps", Device: "iPhone 13 (Alex)",
		Timestamp: "2024-03-14T23:03:00Z", Confidence: 0.88,
		Content:  "Dubai Marina Walk",
		Location: &models.Location{Lat: 25.0805, Lon: 55.1403},
	},
	{
		ID: "ev-105", Type: "location", Source: "Google Maps", Device: "Galaxy S22 (Sam)",
		Timestamp: "2024-03-14T23:07:00Z", Confidence: 0.86,
		Content:  "Dubai Marina Walk",
		Location: &models.Location{Lat: 25.0809, Lon: 55.1398},
	},
	{
		ID: "ev-106", Type: "transaction", Source: "Bank SMS", Device: "Galaxy S22 (Sam)",
		Timestamp: "2024-03-15T08:15:00Z", Confidence: 0.9,
		Content: "AED 48,000 transferred to account ending 4471 (Jordan Reyes)",
		Entities: []models.Entity{
			{Type: "Contact", Value: "Jordan Reyes"},
			{Type: "Amount", Value: "AED 48,000"},
		},
	},
	{
		ID: "ev-107", Type: "message", Source: "Telegram", Device: "Galaxy S22 (Sam)",
		Timestamp: "2024-03-15T09:30:00Z", Confidence: 0.83,
		Content: "Package received. Jordan has the rest.",
		Entities: []models.Entity{
			{Type: "Contact", Value: "Alex Morgan"},
			{Type: "Contact", Value: "Jordan Reyes"},
		},
	},
	{
		ID: "ev-108", Type: "call", Source: "Call Log", Device: "Galaxy S22 (Sam)",
		Timestamp: "2024-03-15T10:02:00Z", Confidence: 0.97,
		Content: "Incoming call from +447700900123 (unknown), 1m03s",
		Entities: []models.Entity{
			{Type: "Phone", Value: "+447700900123"},
		},
	},
	{
		ID: "ev-109", Type: "location", Source: "Photos EXIF", Device: "Galaxy S22 (Sam)",
		Timestamp: "2024-03-15T13:45:00Z", Confidence: 0.8,
		Content:  "Photo taken at Al Maktoum Airport",
		Location: &models.Location{Lat: 24.8962, Lon: 55.1614},
	},
}

var sampleDevices = []string{"iPhone 13 (Alex)", "Galaxy S22 (Sam)"}

var sampleGraph = models.GraphData{
	Nodes: []models.GraphNode{
		{ID: "alex", Group: "Suspect", Label: "Alex Morgan"},
		{ID: "sam", Group: "Suspect", Label: "Sam Okafor"},
		{ID: "jordan", Group: "Associate", Label: "Jordan Reyes"},
		{ID: "unknown-uk", Group: "Phone", Label: "+447700900123"},
		{ID: "btc", Group: "Crypto", Label: "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"},
		{ID: "marina", Group: "Location", Label: "Dubai Marina Walk"},
	},
	Links: []models.GraphLink{
		{Source: "alex", Target: "sam", Label: "messaged", EvidenceIDs: []string{"ev-101", "ev-102"}},
		{Source: "alex", Target: "sam", Label: "called", EvidenceIDs: []string{"ev-103"}},
		{Source: "alex", Target: "btc", Label: "sent to", EvidenceIDs: []string{"ev-102"}},
		{Source: "sam", Target: "jordan", Label: "paid", EvidenceIDs: []string{"ev-106"}},
		{Source: "unknown-uk", Target: "sam", Label: "called", EvidenceIDs: []string{"ev-108"}},
		{Source: "alex", Target: "marina", Label: "visited", EvidenceIDs: []string{"ev-104"}},
		{Source: "sam", Target: "marina", Label: "visited", EvidenceIDs: []string{"ev-105"}},
	},
}

// chatParticipants maps a message's device to who sent it from there.
var chatParticipants = map[string]string{
	"iPhone 13 (Alex)": "Alex Morgan",
	"Galaxy S22 (Sam)": "Sam Okafor",
}
