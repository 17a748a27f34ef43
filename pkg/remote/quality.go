package remote

// OPC DA quality is a 16-bit field whose low byte is laid out QQSSSSLL:
// major quality in bits 7-6, substatus in bits 5-2, limit in bits 1-0.
const (
	QualityMaskMajor     uint16 = 0x00C0
	QualityMaskSubstatus uint16 = 0x00FC

	QualityBad       uint16 = 0x0000
	QualityUncertain uint16 = 0x0040
	QualityGood      uint16 = 0x00C0
)

// qualityStrings maps substatus-qualified quality codes to their
// descriptive names from the OPC DA specification.
var qualityStrings = map[uint16]string{
	0x00: "Bad",
	0x04: "Bad: Configuration Error",
	0x08: "Bad: Not Connected",
	0x0C: "Bad: Device Failure",
	0x10: "Bad: Sensor Failure",
	0x14: "Bad: Last Known Value",
	0x18: "Bad: Comm Failure",
	0x1C: "Bad: Out of Service",
	0x20: "Bad: Waiting for Initial Data",
	0x40: "Uncertain",
	0x44: "Uncertain: Last Usable Value",
	0x50: "Uncertain: Sensor Not Accurate",
	0x54: "Uncertain: Engineering Units Exceeded",
	0x58: "Uncertain: Sub-Normal",
	0xC0: "Good",
	0xD8: "Good: Local Override",
}

// QualityString maps a quality code to its descriptive string. Unknown
// substatus values fall back to the major quality; a code with an invalid
// major quality maps to "Error".
func QualityString(quality uint16) string {
	if s, ok := qualityStrings[quality&QualityMaskSubstatus]; ok {
		return s
	}

	switch quality & QualityMaskMajor {
	case QualityBad:
		return "Bad"
	case QualityUncertain:
		return "Uncertain"
	case QualityGood:
		return "Good"
	default:
		return "Error"
	}
}

// IsGoodQuality returns true if the major quality is Good.
func IsGoodQuality(quality uint16) bool {
	return quality&QualityMaskMajor == QualityGood
}
