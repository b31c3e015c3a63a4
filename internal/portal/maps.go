package portal

import "fmt"

// fieldMapping projects one provider JSON field onto the internal schema.
// The tables below are fixed; mustUniqueKeys rejects duplicate internal keys
// at startup so a renamed field can never silently shadow another.
type fieldMapping struct {
	internal string
	provider string
}

var currentPeriodMap = mustUniqueKeys("current period", []fieldMapping{
	{"period_total_bill", "montantFacturePeriode"},
	{"period_projection", "montantProjetePeriode"},
	{"period_length", "nbJourLecturePeriode"},
	{"period_total_days", "nbJourPrevuPeriode"},
	{"period_mean_daily_bill", "moyenneDollarsJourPeriode"},
	{"period_mean_daily_consumption", "moyenneKwhJourPeriode"},
	{"period_total_consumption", "consoTotalPeriode"},
	{"period_lower_price_consumption", "consoRegPeriode"},
	{"period_higher_price_consumption", "consoHautPeriode"},
	{"period_average_temperature", "tempMoyennePeriode"},
})

var annualMap = mustUniqueKeys("annual", []fieldMapping{
	{"annual_mean_daily_consumption", "moyennekWhJourAnnee"},
	{"annual_total_consumption", "consoTotalAnnee"},
	{"annual_total_bill", "montantFactureAnnee"},
	{"annual_mean_daily_bill", "moyenneDollarsJourAnnee"},
	{"annual_length", "nbJourCalendrierAnnee"},
	{"annual_kwh_price_cent", "coutCentkWh"},
	{"annual_date_start", "dateDebutAnnee"},
	{"annual_date_end", "dateFinAnnee"},
})

var monthlyMap = mustUniqueKeys("monthly", []fieldMapping{
	{"conso_code", "codeConsoMois"},
	{"nb_day", "nbJourCalendrierMois"},
	{"temperature_mean", "tempMoyenneMois"},
	{"mean_consumption_per_day", "moyennekWhJourMois"},
	{"lower_price_consumption", "consoRegMois"},
	{"higher_price_consumption", "consoHautMois"},
	{"total_consumption", "consoTotalMois"},
})

var dailyMap = mustUniqueKeys("daily", []fieldMapping{
	{"total_consumption", "consoTotalQuot"},
	{"lower_price_consumption", "consoRegQuot"},
	{"higher_price_consumption", "consoHautQuot"},
	{"average_temperature", "tempMoyenneQuot"},
})

func mustUniqueKeys(name string, table []fieldMapping) []fieldMapping {
	seen := make(map[string]bool, len(table))
	for _, m := range table {
		if seen[m.internal] {
			panic(fmt.Sprintf("portal: duplicate internal key %q in %s map", m.internal, name))
		}
		seen[m.internal] = true
	}
	return table
}

// renameFields projects raw onto the internal keys of table. Every internal
// key is present in the result; fields the provider omitted come out nil.
// Values are carried through unchanged, there is no unit conversion.
func renameFields(raw map[string]any, table []fieldMapping) map[string]any {
	out := make(map[string]any, len(table))
	for _, m := range table {
		out[m.internal] = raw[m.provider]
	}
	return out
}
