package model

import "strings"

// Country is one entry of the static EU-27 reference table. EIC is the
// ENTSO-E area code; it is empty for member states without their own
// transmission system operator on the Transparency Platform.
type Country struct {
	Name string
	ISO2 string
	ISO3 string
	EIC  string
}

// EUCountries lists the EU-27 in stable ISO2 order. Attribution and country
// node generation both iterate this slice, so output order is deterministic.
var EUCountries = []Country{
	{"Austria", "AT", "AUT", "10YAT-APG------L"},
	{"Belgium", "BE", "BEL", "10YBE----------2"},
	{"Bulgaria", "BG", "BGR", "10YCA-BULGARIA-R"},
	{"Cyprus", "CY", "CYP", ""},
	{"Czech Republic", "CZ", "CZE", "10YCZ-CEPS-----N"},
	{"Germany", "DE", "DEU", "10Y1001A1001A83F"},
	{"Denmark", "DK", "DNK", "10Y1001A1001A65H"},
	{"Estonia", "EE", "EST", "10Y1001A1001A39I"},
	{"Spain", "ES", "ESP", "10YES-REE------0"},
	{"Finland", "FI", "FIN", "10YFI-1--------U"},
	{"France", "FR", "FRA", "10YFR-RTE------C"},
	{"Greece", "GR", "GRC", "10YGR-HTSO-----Y"},
	{"Croatia", "HR", "HRV", "10YHR-HEP------M"},
	{"Hungary", "HU", "HUN", "10YHU-MAVIR----U"},
	{"Ireland", "IE", "IRL", "10YIE-1001A00010"},
	{"Italy", "IT", "ITA", "10YIT-GRTN-----B"},
	{"Lithuania", "LT", "LTU", "10YLT-1001A0008Q"},
	{"Luxembourg", "LU", "LUX", ""},
	{"Latvia", "LV", "LVA", "10YLV-1001A00074"},
	{"Malta", "MT", "MLT", ""},
	{"Netherlands", "NL", "NLD", "10YNL----------L"},
	{"Poland", "PL", "POL", "10YPL-AREA-----S"},
	{"Portugal", "PT", "PRT", "10YPT-REN------W"},
	{"Romania", "RO", "ROU", "10YRO-TEL------P"},
	{"Sweden", "SE", "SWE", "10YSE-1--------K"},
	{"Slovenia", "SI", "SVN", "10YSI-ELES-----O"},
	{"Slovakia", "SK", "SVK", "10YSK-SEPS-----K"},
}

// CountryNodeID returns the deterministic node id for an ISO2 code.
func CountryNodeID(iso2 string) string {
	return "country:" + strings.ToUpper(iso2)
}

// LookupCountry resolves a country by ISO2, ISO3, or English name,
// case-insensitively. Returns false for anything outside the EU-27.
func LookupCountry(key string) (Country, bool) {
	k := strings.ToUpper(strings.TrimSpace(key))
	for _, c := range EUCountries {
		if c.ISO2 == k || c.ISO3 == k || strings.ToUpper(c.Name) == k {
			return c, true
		}
	}
	return Country{}, false
}

// CountryNodes builds the per-run Country reference nodes, one per EU member,
// in stable order. These are created once per run and never mutated.
func CountryNodes() []Node {
	nodes := make([]Node, len(EUCountries))
	for i, c := range EUCountries {
		var eic any
		if c.EIC != "" {
			eic = c.EIC
		}
		nodes[i] = Node{
			ID:   CountryNodeID(c.ISO2),
			Type: TypeCountry,
			Properties: map[string]any{
				"name":     c.Name,
				"iso2":     c.ISO2,
				"iso3":     c.ISO3,
				"eic_code": eic,
			},
		}
	}
	return nodes
}
