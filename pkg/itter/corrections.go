package itter

type correction struct {
	code string
	raw  string
	name string
}

// corrections replace bilingual names published by the service for a few
// codes. A correction only applies when the raw name matches exactly.
var corrections = []correction{
	{code: "ITC2", raw: "Valle d'Aosta / Vallée d'Aoste", name: "Valle d'Aosta"},
	{code: "ITC20", raw: "Valle d'Aosta / Vallée d'Aoste", name: "Aosta"},
	{code: "ITD10", raw: "Bolzano / Bozen", name: "Bolzano"},
	{code: "ITDA", raw: "Trentino Alto Adige / Südtirol", name: "Trentino Alto Adige"},
}

// CorrectName returns the display name to use for code.
func CorrectName(code, name string) string {
	for _, c := range corrections {
		if c.code == code && c.raw == name {
			return c.name
		}
	}
	return name
}
