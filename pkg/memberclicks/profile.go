package memberclicks

import (
	"fmt"

	"github.com/lwedwards3/dhp-sync/pkg/model"
)

// Profile is a raw profile record as returned by the service: a flat map
// keyed by attribute name. System attributes are bracketed; custom
// vacation-patrol attributes carry their full question text.
type Profile map[string]any

// Attribute keys used directly by the adapter.
const (
	attrAddressLine1  = "[Address | Primary | Line 1]"
	attrAddressLine2  = "[Address | Primary | Line 2]"
	attrContactName   = "[Contact Name]"
	attrEmailPrimary  = "[Email | Primary]"
	attrMemberStatus  = "[Member Status]"
	attrSpecialNotes  = "Vacation Patrol Request Special Notes to Officer"
	attrDepartureDate = "Vacation Patrol Request Departure Date"
	attrDepartureTime = "Vacation Patrol Request Departure Time"
	attrReturnDate    = "Vacation Patrol Request Return Date"
	attrReturnTime    = "Vacation Patrol Request Return Time"
)

// noteAttrs lists the labelled attributes appended to the officer notes,
// in display order. Only non-empty values are included.
var noteAttrs = []struct {
	key   string
	label string
}{
	{attrContactName, "Contact"},
	{"[Phone | Primary]", "Phone-prime"},
	{attrEmailPrimary, "Email-prime"},
	{"Other Notes to Officer", "Other notes"},
	{"Employees, caregivers or others regularly on the property", "On property"},
	{"Pet - please describe any dogs (breed, size, name, list precautions)", "Pets"},
	{"Renters? Please list their names and vehicle information, including color", "Renters"},
	{"Vehicle Number 1 (make/model/year/color)", "Vehicle1"},
	{"Vehicle Number 2 (make/model/year/color)", "Vehicle2"},
	{"Vehicle Number 3 (make/model/year/color)", "Vehicle3"},
	{"Vehicle Number 4 (make/model/year/color)", "Vehicle4"},
	{"Vehicle Number 5 (make/model/year/color)", "Vehicle5"},
	{"[Phone | Cell]", "Phone-cell"},
	{"[Phone | Home]", "Phone-home"},
	{"[Phone | Work]", "Phone-work"},
	{"Emergency Contact 1- Name", "Emg contact"},
	{"Emergency Contact 1- Phone Number", "Emg contact ph"},
	{"Emergency Contact 2 - Name", "Emg contact2"},
	{"Emergency Contact 2 - Phone Number", "Emg contact2 ph"},
	{"Jurisdiction - Police", "Jurisdiction"},
}

// Get returns the attribute rendered as a string, or "" when absent.
func (p Profile) Get(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Address returns the canonical one-line street address.
func (p Profile) Address() string {
	return joinAddress(p.Get(attrAddressLine1), p.Get(attrAddressLine2))
}

// OfficerNotes assembles the free-text lines shown to the patrol officer:
// the member's special notes, the vacation window, then every non-empty
// labelled attribute.
func (p Profile) OfficerNotes() []string {
	notes := []string{
		p.Get(attrSpecialNotes),
		"-----------------------------------",
		"Departs: " + p.Get(attrDepartureDate) + " " + p.Get(attrDepartureTime),
		"Returns: " + p.Get(attrReturnDate) + " " + p.Get(attrReturnTime),
		"",
	}
	for _, attr := range noteAttrs {
		if val := p.Get(attr.key); val != "" {
			notes = append(notes, attr.label+": "+val, "")
		}
	}
	return notes
}

// toRequest converts a raw profile into a reconciled request record for
// the given patrol date (empty for address-match lookups, where no single
// date applies).
func (p Profile) toRequest(patrolDate string) *model.Request {
	return &model.Request{
		Address:      p.Address(),
		DueDate:      patrolDate,
		Source:       model.SourceProfile,
		Assets:       []model.Asset{},
		OfficerNotes: p.OfficerNotes(),
		MemberName:   p.Get(attrContactName),
		EmailAddress: p.Get(attrEmailPrimary),
		MemberStatus: p.Get(attrMemberStatus),
	}
}
