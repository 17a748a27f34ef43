package remote

import "fmt"

// Well-known OPC DA HRESULT codes reported per item.
const (
	// CodeOK indicates the per-item operation succeeded.
	CodeOK int32 = 0

	// CodeUnknownItemID indicates the item is not in the server's address
	// space (OPC_E_UNKNOWNITEMID).
	CodeUnknownItemID int32 = -1073479673 // 0xC0040007

	// CodeInvalidItemID indicates the item ID is syntactically invalid
	// (OPC_E_INVALIDITEMID).
	CodeInvalidItemID int32 = -1073479672 // 0xC0040008

	// CodeBadRights indicates the item cannot be accessed in the requested
	// mode (OPC_E_BADRIGHTS).
	CodeBadRights int32 = -1073479674 // 0xC0040006

	// CodeBadType indicates the value cannot be coerced to the item's
	// canonical type (OPC_E_BADTYPE).
	CodeBadType int32 = -1073479676 // 0xC0040004

	// CodeUnknownPath indicates the item's access path is unknown
	// (OPC_E_UNKNOWNPATH).
	CodeUnknownPath int32 = -1073479670 // 0xC004000A
)

// codeStrings holds the descriptive text for the well-known codes.
var codeStrings = map[int32]string{
	CodeOK:            "The operation completed successfully.",
	CodeUnknownItemID: "The item ID is not defined in the server address space.",
	CodeInvalidItemID: "The item ID does not conform to the server's syntax.",
	CodeBadRights:     "The item's access rights do not allow the operation.",
	CodeBadType:       "The server cannot convert the data between the requested data type and the canonical data type.",
	CodeUnknownPath:   "The item's access path is not known to the server.",
}

// CodeString returns the descriptive text for a well-known code, or a
// generic hex rendering for anything else. Server implementations should
// prefer their native error strings and use this only as a fallback.
func CodeString(code int32) string {
	if s, ok := codeStrings[code]; ok {
		return s
	}
	return fmt.Sprintf("Unknown error 0x%08X", uint32(code))
}
