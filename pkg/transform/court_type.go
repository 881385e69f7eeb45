package transform

// OtherCourtType is the legacy court type for anything not in the table.
const OtherCourtType = "OTHER"

// courtTypes maps register court types to legacy court types.
var courtTypes = map[string]string{
	"CMT": "GCM",
	"COA": "CACD",
	"COU": "CO",
	"CRN": "CC",
	"MAG": "MC",
	"YTH": "YC",
	"COM": "CB",
	"IMM": "IMM",
	"OTH": OtherCourtType,
}

// CourtType returns the legacy court type for a register court type.
func CourtType(registerType string) string {
	if t, ok := courtTypes[registerType]; ok {
		return t
	}
	return OtherCourtType
}
