package refdata

import (
	"sort"
	"strings"
)

// Urgency levels, most urgent first: emergency, urgent, soon, routine.
const (
	UrgencyEmergency = "emergency"
	UrgencyUrgent    = "urgent"
	UrgencySoon      = "soon"
	UrgencyRoutine   = "routine"
)

var urgencyRank = map[string]int{
	UrgencyEmergency: 0,
	UrgencyUrgent:    1,
	UrgencySoon:      2,
	UrgencyRoutine:   3,
}

// Condition is one possible condition for a symptom, ordered in the table by
// clinical likelihood.
type Condition struct {
	Name       string
	ICD10      string
	Urgency    string
	Likelihood string // "must_rule_out", "very_common", "common", "less_common"
	RedFlags   string
	Notes      string
}

var symptomConditions = map[string][]Condition{
	"chest pain": {
		{Name: "Acute coronary syndrome (heart attack)", ICD10: "I21.9", Urgency: UrgencyEmergency, Likelihood: "must_rule_out",
			RedFlags: "Crushing/pressure pain radiating to jaw or arm, shortness of breath, sweating, nausea",
			Notes:    "Call 911 immediately if suspected. Time-critical emergency."},
		{Name: "Pulmonary embolism", ICD10: "I26.99", Urgency: UrgencyEmergency, Likelihood: "must_rule_out",
			RedFlags: "Sudden onset, pleuritic pain, recent surgery or immobility, leg swelling",
			Notes:    "Life-threatening. Requires immediate CT angiography."},
		{Name: "Angina pectoris", ICD10: "I20.9", Urgency: UrgencyUrgent, Likelihood: "common",
			RedFlags: "Pain with exertion relieved by rest, known heart disease",
			Notes:    "Requires cardiology evaluation; may need stress testing."},
		{Name: "Gastroesophageal reflux disease (GERD)", ICD10: "K21.0", Urgency: UrgencyRoutine, Likelihood: "common",
			RedFlags: "Burning sensation, worse after meals or lying down, acid taste",
			Notes:    "A trial of antacids may help differentiate from cardiac causes."},
		{Name: "Costochondritis", ICD10: "M94.0", Urgency: UrgencyRoutine, Likelihood: "common",
			RedFlags: "Sharp pain reproduced by pressing on the chest wall",
			Notes:    "Benign rib cartilage inflammation; NSAIDs for treatment."},
	},
	"shortness of breath": {
		{Name: "Asthma exacerbation", ICD10: "J45.901", Urgency: UrgencyUrgent, Likelihood: "common",
			RedFlags: "Wheezing, history of asthma, triggered by allergens or exercise",
			Notes:    "Use rescue inhaler; seek emergency care if not improving."},
		{Name: "Pulmonary embolism", ICD10: "I26.99", Urgency: UrgencyEmergency, Likelihood: "must_rule_out",
			RedFlags: "Sudden onset with chest pain, risk factors for clots",
			Notes:    "Life-threatening; requires immediate evaluation."},
		{Name: "Heart failure exacerbation", ICD10: "I50.9", Urgency: UrgencyUrgent, Likelihood: "common",
			RedFlags: "Orthopnea, leg swelling, weight gain, known cardiac history",
			Notes:    "Needs prompt evaluation of volume status and cardiac function."},
		{Name: "Anxiety / panic attack", ICD10: "F41.0", Urgency: UrgencyRoutine, Likelihood: "common",
			RedFlags: "Situational onset, tingling, sense of doom, prior episodes",
			Notes:    "Diagnosis of exclusion; rule out organic causes first."},
	},
	"headache": {
		{Name: "Tension-type headache", ICD10: "G44.209", Urgency: UrgencyRoutine, Likelihood: "very_common",
			RedFlags: "Band-like pressure, stress-associated, no neurological signs",
			Notes:    "Most common headache type; responds to OTC analgesics."},
		{Name: "Migraine", ICD10: "G43.909", Urgency: UrgencyRoutine, Likelihood: "very_common",
			RedFlags: "Unilateral throbbing, photophobia, nausea, aura",
			Notes:    "Consider triptans and trigger avoidance."},
		{Name: "Subarachnoid hemorrhage", ICD10: "I60.9", Urgency: UrgencyEmergency, Likelihood: "must_rule_out",
			RedFlags: "Thunderclap onset, worst headache of life, neck stiffness",
			Notes:    "Call 911. Requires immediate CT head."},
		{Name: "Meningitis", ICD10: "G03.9", Urgency: UrgencyEmergency, Likelihood: "must_rule_out",
			RedFlags: "Fever, neck stiffness, photophobia, altered mental status",
			Notes:    "Medical emergency; needs lumbar puncture and empiric antibiotics."},
	},
	"fatigue": {
		{Name: "Iron deficiency anemia", ICD10: "D50.9", Urgency: UrgencySoon, Likelihood: "common",
			RedFlags: "Pallor, exertional dyspnea, heavy menstrual periods",
			Notes:    "CBC and ferritin for workup."},
		{Name: "Hypothyroidism", ICD10: "E03.9", Urgency: UrgencySoon, Likelihood: "common",
			RedFlags: "Weight gain, cold intolerance, dry skin, constipation",
			Notes:    "Check TSH."},
		{Name: "Depression", ICD10: "F32.9", Urgency: UrgencySoon, Likelihood: "common",
			RedFlags: "Low mood, anhedonia, sleep disturbance",
			Notes:    "Screen with PHQ-9; assess safety."},
		{Name: "Sleep apnea", ICD10: "G47.33", Urgency: UrgencyRoutine, Likelihood: "common",
			RedFlags: "Snoring, witnessed apneas, daytime sleepiness, obesity",
			Notes:    "Consider sleep study."},
	},
	"abdominal pain": {
		{Name: "Appendicitis", ICD10: "K35.80", Urgency: UrgencyEmergency, Likelihood: "must_rule_out",
			RedFlags: "Migration to right lower quadrant, fever, rebound tenderness",
			Notes:    "Surgical emergency; needs imaging and surgical consult."},
		{Name: "Gastritis", ICD10: "K29.70", Urgency: UrgencyRoutine, Likelihood: "common",
			RedFlags: "Epigastric burning, NSAID or alcohol use",
			Notes:    "Trial of acid suppression; test for H. pylori if persistent."},
		{Name: "Gallstones (biliary colic)", ICD10: "K80.20", Urgency: UrgencyUrgent, Likelihood: "common",
			RedFlags: "Right upper quadrant pain after fatty meals, radiating to shoulder",
			Notes:    "Ultrasound for diagnosis; fever suggests cholecystitis."},
		{Name: "Irritable bowel syndrome", ICD10: "K58.9", Urgency: UrgencyRoutine, Likelihood: "very_common",
			RedFlags: "Chronic crampy pain relieved by defecation, alternating bowel habits",
			Notes:    "Diagnosis of exclusion; alarm features warrant colonoscopy."},
	},
	"dizziness": {
		{Name: "Benign paroxysmal positional vertigo", ICD10: "H81.10", Urgency: UrgencyRoutine, Likelihood: "very_common",
			RedFlags: "Brief spinning triggered by head position changes",
			Notes:    "Dix-Hallpike maneuver diagnostic; Epley maneuver curative."},
		{Name: "Orthostatic hypotension", ICD10: "I95.1", Urgency: UrgencySoon, Likelihood: "common",
			RedFlags: "Lightheadedness on standing, dehydration, antihypertensive use",
			Notes:    "Check orthostatic vitals; review medication list."},
		{Name: "Stroke / TIA", ICD10: "I63.9", Urgency: UrgencyEmergency, Likelihood: "must_rule_out",
			RedFlags: "Focal weakness, slurred speech, facial droop, sudden onset",
			Notes:    "Call 911. Time-critical for thrombolysis."},
	},
	"fever": {
		{Name: "Viral upper respiratory infection", ICD10: "J06.9", Urgency: UrgencyRoutine, Likelihood: "very_common",
			RedFlags: "Congestion, sore throat, cough, myalgias",
			Notes:    "Supportive care; antibiotics not indicated."},
		{Name: "Urinary tract infection", ICD10: "N39.0", Urgency: UrgencySoon, Likelihood: "common",
			RedFlags: "Dysuria, frequency, flank pain suggests pyelonephritis",
			Notes:    "Urinalysis and culture; flank pain needs prompt treatment."},
		{Name: "Sepsis", ICD10: "A41.9", Urgency: UrgencyEmergency, Likelihood: "must_rule_out",
			RedFlags: "Confusion, rapid breathing, hypotension, rigors",
			Notes:    "Medical emergency; immediate IV antibiotics and fluids."},
	},
}

// symptomKeys is the sorted key list so substring fallback is deterministic.
var symptomKeys = func() []string {
	keys := make([]string, 0, len(symptomConditions))
	for k := range symptomConditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()

// SymptomResult is the lookup outcome for a single reported symptom.
type SymptomResult struct {
	Symptom    string
	Matched    bool
	Conditions []Condition
}

// HighestUrgency returns the most urgent level among the matched conditions,
// or "" when nothing matched.
func (r SymptomResult) HighestUrgency() string {
	best := ""
	for _, c := range r.Conditions {
		if best == "" || urgencyRank[c.Urgency] < urgencyRank[best] {
			best = c.Urgency
		}
	}
	return best
}

// LookupSymptoms maps each reported symptom to its possible conditions.
// Matching is case-insensitive and tolerates the symptom appearing as a
// substring ("bad headache" matches "headache").
func LookupSymptoms(symptoms []string) []SymptomResult {
	results := make([]SymptomResult, 0, len(symptoms))
	for _, s := range symptoms {
		norm := strings.ToLower(strings.TrimSpace(s))
		res := SymptomResult{Symptom: s}
		if conds, ok := symptomConditions[norm]; ok {
			res.Matched = true
			res.Conditions = conds
		} else {
			for _, key := range symptomKeys {
				if strings.Contains(norm, key) {
					res.Matched = true
					res.Conditions = symptomConditions[key]
					break
				}
			}
		}
		results = append(results, res)
	}
	return results
}
