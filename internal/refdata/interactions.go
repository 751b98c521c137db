// Package refdata holds the static clinical reference tables: the pairwise
// drug interaction table and the symptom-to-condition table. Both are pure
// lookup data with no I/O, keyed case-insensitively.
package refdata

import (
	"sort"
	"strings"

	"github.com/medrow/clinagent/internal/core/domain"
)

// drugAliases maps common brand names to generic names for normalization.
var drugAliases = map[string]string{
	// Pain / anti-inflammatory
	"tylenol": "acetaminophen",
	"advil":   "ibuprofen",
	"motrin":  "ibuprofen",
	"aleve":   "naproxen",
	// Anticoagulants / antiplatelets
	"coumadin": "warfarin",
	"jantoven": "warfarin",
	"xarelto":  "rivaroxaban",
	"eliquis":  "apixaban",
	"plavix":   "clopidogrel",
	// Cardiovascular
	"lipitor":   "atorvastatin",
	"crestor":   "rosuvastatin",
	"zocor":     "simvastatin",
	"norvasc":   "amlodipine",
	"lopressor": "metoprolol",
	"toprol":    "metoprolol",
	"prinivil":  "lisinopril",
	"zestril":   "lisinopril",
	"cozaar":    "losartan",
	"lasix":     "furosemide",
	"lanoxin":   "digoxin",
	"cordarone": "amiodarone",
	// Diabetes
	"glucophage": "metformin",
	"januvia":    "sitagliptin",
	// Antibiotics / antifungals
	"cipro":     "ciprofloxacin",
	"levaquin":  "levofloxacin",
	"zithromax": "azithromycin",
	"biaxin":    "clarithromycin",
	"diflucan":  "fluconazole",
	"flagyl":    "metronidazole",
	// Mental health
	"zoloft":     "sertraline",
	"prozac":     "fluoxetine",
	"lexapro":    "escitalopram",
	"paxil":      "paroxetine",
	"effexor":    "venlafaxine",
	"cymbalta":   "duloxetine",
	"wellbutrin": "bupropion",
	"xanax":      "alprazolam",
	"valium":     "diazepam",
	"ativan":     "lorazepam",
	// GI
	"prilosec": "omeprazole",
	"nexium":   "esomeprazole",
	// Opioids
	"vicodin":  "hydrocodone",
	"percocet": "oxycodone",
	"ultram":   "tramadol",
	// Other
	"synthroid": "levothyroxine",
	"aldactone": "spironolactone",
	"viagra":    "sildenafil",
}

// Interaction describes one clinically significant drug pair.
type Interaction struct {
	Severity       domain.Severity
	Description    string
	Mechanism      string
	Recommendation string
}

// interactions is keyed by pairKey (sorted generic names) so lookup is
// order-independent.
var interactions = map[string]Interaction{
	// Anticoagulant interactions
	pairKey("warfarin", "aspirin"): {
		Severity:       domain.SeverityMajor,
		Description:    "Significantly increased risk of bleeding",
		Mechanism:      "Aspirin inhibits platelet aggregation while warfarin inhibits clotting factor synthesis; the combined effect dramatically increases hemorrhage risk.",
		Recommendation: "Avoid combination unless specifically prescribed. If co-prescribed, monitor INR frequently and watch for signs of bleeding.",
	},
	pairKey("warfarin", "ibuprofen"): {
		Severity:       domain.SeverityMajor,
		Description:    "Increased risk of GI bleeding and elevated INR",
		Mechanism:      "NSAIDs inhibit platelet function, damage GI mucosa, and may displace warfarin from protein binding sites.",
		Recommendation: "Avoid NSAIDs with warfarin. Use acetaminophen for pain relief instead.",
	},
	pairKey("warfarin", "naproxen"): {
		Severity:       domain.SeverityMajor,
		Description:    "Increased risk of GI bleeding and elevated INR",
		Mechanism:      "NSAIDs inhibit platelet function and may increase warfarin levels.",
		Recommendation: "Avoid NSAIDs with warfarin. Use acetaminophen for pain relief instead.",
	},
	pairKey("warfarin", "amiodarone"): {
		Severity:       domain.SeverityMajor,
		Description:    "Amiodarone significantly increases warfarin effect; risk of severe bleeding",
		Mechanism:      "Amiodarone inhibits CYP2C9 and CYP3A4, reducing warfarin metabolism. The effect can persist weeks after discontinuation.",
		Recommendation: "Reduce warfarin dose by 30-50% when starting amiodarone. Monitor INR weekly for 4-6 weeks.",
	},
	pairKey("warfarin", "ciprofloxacin"): {
		Severity:       domain.SeverityMajor,
		Description:    "Increased anticoagulant effect; risk of bleeding",
		Mechanism:      "Ciprofloxacin inhibits CYP1A2, reducing warfarin metabolism, and suppresses vitamin K producing gut flora.",
		Recommendation: "Monitor INR closely during and after the antibiotic course.",
	},
	pairKey("warfarin", "fluconazole"): {
		Severity:       domain.SeverityMajor,
		Description:    "Marked increase in warfarin levels; bleeding risk",
		Mechanism:      "Fluconazole strongly inhibits CYP2C9, the primary warfarin-metabolizing enzyme.",
		Recommendation: "Consider warfarin dose reduction and frequent INR checks.",
	},
	pairKey("warfarin", "acetaminophen"): {
		Severity:       domain.SeverityModerate,
		Description:    "Mild INR elevation with sustained high-dose acetaminophen",
		Mechanism:      "Acetaminophen metabolites may interfere with vitamin K cycle enzymes.",
		Recommendation: "Safe at occasional doses. Monitor INR if taking more than 2g/day for several days.",
	},
	pairKey("aspirin", "ibuprofen"): {
		Severity:       domain.SeverityModerate,
		Description:    "Ibuprofen can blunt aspirin's cardioprotective effect; additive GI risk",
		Mechanism:      "Ibuprofen competes for the platelet COX-1 binding site, blocking aspirin's irreversible inhibition.",
		Recommendation: "Take aspirin at least 30 minutes before ibuprofen. Consider gastroprotection.",
	},
	// Serotonergic combinations
	pairKey("sertraline", "tramadol"): {
		Severity:       domain.SeverityMajor,
		Description:    "Risk of serotonin syndrome and lowered seizure threshold",
		Mechanism:      "Both agents increase serotonergic activity; tramadol also lowers the seizure threshold.",
		Recommendation: "Avoid combination where possible. Watch for agitation, hyperthermia, clonus.",
	},
	pairKey("fluoxetine", "tramadol"): {
		Severity:       domain.SeverityMajor,
		Description:    "Risk of serotonin syndrome and seizures",
		Mechanism:      "Additive serotonin reuptake inhibition; fluoxetine also inhibits CYP2D6 conversion of tramadol.",
		Recommendation: "Avoid combination. Use a non-serotonergic analgesic.",
	},
	pairKey("venlafaxine", "tramadol"): {
		Severity:       domain.SeverityMajor,
		Description:    "Risk of serotonin syndrome and seizures",
		Mechanism:      "Both drugs increase serotonergic activity through reuptake inhibition.",
		Recommendation: "Avoid combination. Use alternative analgesics.",
	},
	pairKey("fluoxetine", "metoprolol"): {
		Severity:       domain.SeverityModerate,
		Description:    "Increased metoprolol levels; excessive beta-blockade",
		Mechanism:      "Fluoxetine inhibits CYP2D6, the primary enzyme metabolizing metoprolol.",
		Recommendation: "Monitor heart rate and blood pressure; metoprolol dose may need reduction.",
	},
	// Statin interactions
	pairKey("simvastatin", "clarithromycin"): {
		Severity:       domain.SeverityMajor,
		Description:    "Greatly increased simvastatin exposure; rhabdomyolysis risk",
		Mechanism:      "Clarithromycin strongly inhibits CYP3A4-mediated simvastatin metabolism.",
		Recommendation: "Hold simvastatin during clarithromycin therapy or use azithromycin instead.",
	},
	pairKey("atorvastatin", "clarithromycin"): {
		Severity:       domain.SeverityMajor,
		Description:    "Increased atorvastatin exposure; myopathy risk",
		Mechanism:      "CYP3A4 inhibition by clarithromycin raises statin plasma levels.",
		Recommendation: "Limit atorvastatin dose or switch antibiotic. Watch for muscle pain.",
	},
	pairKey("amlodipine", "simvastatin"): {
		Severity:       domain.SeverityModerate,
		Description:    "Increased simvastatin levels; risk of myopathy",
		Mechanism:      "Amlodipine moderately inhibits CYP3A4, increasing simvastatin exposure.",
		Recommendation: "Limit simvastatin to 20mg/day when combined with amlodipine.",
	},
	// Cardiac
	pairKey("digoxin", "amiodarone"): {
		Severity:       domain.SeverityMajor,
		Description:    "Digoxin toxicity: nausea, arrhythmias, visual changes",
		Mechanism:      "Amiodarone inhibits P-glycoprotein, roughly doubling digoxin levels.",
		Recommendation: "Halve the digoxin dose when starting amiodarone and monitor levels.",
	},
	pairKey("sildenafil", "nitroglycerin"): {
		Severity:       domain.SeverityMajor,
		Description:    "Profound hypotension, potentially fatal",
		Mechanism:      "Both drugs potentiate nitric oxide mediated vasodilation.",
		Recommendation: "Never combine. Separate use by at least 24 hours (sildenafil).",
	},
	pairKey("lisinopril", "spironolactone"): {
		Severity:       domain.SeverityModerate,
		Description:    "Risk of hyperkalemia, especially with renal impairment",
		Mechanism:      "ACE inhibition and aldosterone antagonism both reduce potassium excretion.",
		Recommendation: "Monitor serum potassium and renal function regularly.",
	},
	pairKey("lisinopril", "ibuprofen"): {
		Severity:       domain.SeverityModerate,
		Description:    "Reduced antihypertensive effect; risk of renal impairment",
		Mechanism:      "NSAIDs inhibit renal prostaglandins that ACE inhibitors depend on.",
		Recommendation: "Avoid regular NSAID use; monitor blood pressure and creatinine.",
	},
	// Other
	pairKey("omeprazole", "clopidogrel"): {
		Severity:       domain.SeverityModerate,
		Description:    "Reduced antiplatelet effect of clopidogrel",
		Mechanism:      "Omeprazole inhibits CYP2C19 activation of the clopidogrel prodrug.",
		Recommendation: "Prefer pantoprazole or famotidine for acid suppression.",
	},
	pairKey("metformin", "alcohol"): {
		Severity:       domain.SeverityModerate,
		Description:    "Increased risk of lactic acidosis and hypoglycemia",
		Mechanism:      "Alcohol impairs hepatic gluconeogenesis and may exacerbate metformin-associated lactic acidosis.",
		Recommendation: "Limit alcohol intake; avoid binge drinking; monitor blood glucose.",
	},
	pairKey("levothyroxine", "omeprazole"): {
		Severity:       domain.SeverityMinor,
		Description:    "Modestly reduced levothyroxine absorption",
		Mechanism:      "Gastric acid suppression reduces dissolution of levothyroxine tablets.",
		Recommendation: "Separate dosing; check TSH if hypothyroid symptoms recur.",
	},
	pairKey("azithromycin", "amiodarone"): {
		Severity:       domain.SeverityMajor,
		Description:    "Additive QT prolongation; torsades de pointes risk",
		Mechanism:      "Both agents prolong the QT interval.",
		Recommendation: "Avoid combination; if unavoidable, obtain baseline and follow-up ECGs.",
	},
}

// NormalizeDrugName lowercases a drug name and maps brand names to generics.
func NormalizeDrugName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if generic, ok := drugAliases[lower]; ok {
		return generic
	}
	return lower
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// LookupInteraction returns the interaction for an unordered pair of drug
// names (brand or generic, any case), or ok=false when none is known.
func LookupInteraction(drug1, drug2 string) (Interaction, bool) {
	i, ok := interactions[pairKey(NormalizeDrugName(drug1), NormalizeDrugName(drug2))]
	return i, ok
}

// InteractionMatch pairs a found interaction with the names it matched on.
type InteractionMatch struct {
	Drug1, Drug2               string
	Drug1Generic, Drug2Generic string
	Interaction
}

// CheckInteractions checks every unordered pair in the medication list and
// returns matches sorted most severe first (ties broken by drug name for
// determinism).
func CheckInteractions(medications []string) []InteractionMatch {
	severityRank := map[domain.Severity]int{
		domain.SeverityMajor:    0,
		domain.SeverityModerate: 1,
		domain.SeverityMinor:    2,
	}

	var found []InteractionMatch
	for i := 0; i < len(medications); i++ {
		for j := i + 1; j < len(medications); j++ {
			inter, ok := LookupInteraction(medications[i], medications[j])
			if !ok {
				continue
			}
			found = append(found, InteractionMatch{
				Drug1:        medications[i],
				Drug2:        medications[j],
				Drug1Generic: NormalizeDrugName(medications[i]),
				Drug2Generic: NormalizeDrugName(medications[j]),
				Interaction:  inter,
			})
		}
	}

	sort.SliceStable(found, func(a, b int) bool {
		ra, rb := severityRank[found[a].Severity], severityRank[found[b].Severity]
		if ra != rb {
			return ra < rb
		}
		return found[a].Drug1Generic < found[b].Drug1Generic
	})
	return found
}

// KnownDrugNames returns every name the table knows (generics and brand
// aliases), for mention scanning. Sorted for deterministic iteration.
func KnownDrugNames() []string {
	set := make(map[string]struct{})
	for key := range interactions {
		parts := strings.SplitN(key, "|", 2)
		set[parts[0]] = struct{}{}
		set[parts[1]] = struct{}{}
	}
	for alias := range drugAliases {
		set[alias] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
