// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package uwb speaks the AT protocol of the UWB ranging module: line framing,
// the bring-up command session and range report decoding.
package uwb

// Local identifies the anchor this node represents.
type Local struct {
	AnchorID int
	X        float64
	Y        float64
}

// Reading is one resolved distance between a tag and the local anchor,
// suitable for JSON and MQTT.
type Reading struct {
	TagID     int     `json:"tagId"`
	Distance  float64 `json:"distance"` // meters, >= 0
	RSSI      int     `json:"rssi"`     // not reported by the module, always 0
	AnchorID  int     `json:"anchorId"`
	AnchorX   float64 `json:"anchorX"`
	AnchorY   float64 `json:"anchorY"`
	Timestamp int64   `json:"timestamp"` // ms since boot
}
