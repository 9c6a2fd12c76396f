// Package entity contains value types shared by every ledger: locations and
// condition-split quantities.
package entity

import (
	"fmt"
)

// PartyType identifies who holds stock.
type PartyType string

const (
	PartyTechnician    PartyType = "technician"
	PartyServiceCenter PartyType = "service_center"
)

// Valid reports whether t is a known party type.
func (t PartyType) Valid() bool {
	return t == PartyTechnician || t == PartyServiceCenter
}

// Location is a (party-type, party-id) pair. Requests use it for their
// source and destination parties, pools and movements for their locations.
type Location struct {
	Type PartyType `json:"type"`
	ID   int64     `json:"id"`
}

// Technician returns the location of a technician's personal stock.
func Technician(id int64) Location {
	return Location{Type: PartyTechnician, ID: id}
}

// ServiceCenter returns the location of a service center's stock.
func ServiceCenter(id int64) Location {
	return Location{Type: PartyServiceCenter, ID: id}
}

// IsZero reports whether the location is unset.
func (l Location) IsZero() bool {
	return l.Type == "" && l.ID == 0
}

// Valid reports whether the location has a known type and a positive id.
func (l Location) Valid() bool {
	return l.Type.Valid() && l.ID > 0
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.Type, l.ID)
}

// Less orders locations by type then id.
func (l Location) Less(other Location) bool {
	if l.Type != other.Type {
		return l.Type < other.Type
	}
	return l.ID < other.ID
}
