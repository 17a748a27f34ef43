package discovery

import (
	"fmt"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeGatewayTXT creates the TXT records for a gateway announcement.
func EncodeGatewayTXT(info *GatewayInfo) TXTRecordMap {
	txt := make(TXTRecordMap)
	txt[TXTKeyServer] = info.Server
	txt[TXTKeySession] = info.SessionID
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	return txt
}

// DecodeGatewayTXT parses the TXT records of a gateway announcement.
func DecodeGatewayTXT(txt TXTRecordMap) (*GatewayInfo, error) {
	info := &GatewayInfo{}

	var ok bool
	info.Server, ok = txt[TXTKeyServer]
	if !ok || info.Server == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyServer)
	}

	info.SessionID, ok = txt[TXTKeySession]
	if !ok || info.SessionID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeySession)
	}

	info.Version = txt[TXTKeyVersion]
	return info, nil
}

// TXTRecordsToStrings converts a record map to "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	out := make([]string, 0, len(txt))
	for key, value := range txt {
		out = append(out, key+"="+value)
	}
	return out
}

// StringsToTXTRecords parses "key=value" strings into a record map.
// Entries without '=' are ignored.
func StringsToTXTRecords(records []string) TXTRecordMap {
	txt := make(TXTRecordMap, len(records))
	for _, record := range records {
		key, value, found := strings.Cut(record, "=")
		if !found {
			continue
		}
		txt[key] = value
	}
	return txt
}
