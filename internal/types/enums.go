package types

// PlantType identifies the vegetable variety of a plant record.
type PlantType string

const (
	PlantTomato      PlantType = "tomato"
	PlantEggplant    PlantType = "eggplant"
	PlantOkra        PlantType = "okra"
	PlantBitterGourd PlantType = "bitter_gourd"
	PlantChiliPepper PlantType = "chili_pepper"
	// PlantMixed marks a group record created from a multi-subject scan whose
	// members are not all the same variety.
	PlantMixed   PlantType = "mixed"
	PlantUnknown PlantType = "unknown"
)

// KnownPlantTypes is the closed set of individual vegetable varieties the
// detector can report. Group and fallback types are excluded.
var KnownPlantTypes = []PlantType{
	PlantTomato,
	PlantEggplant,
	PlantOkra,
	PlantBitterGourd,
	PlantChiliPepper,
}

// Valid reports whether t is an accepted plant type, including the group and
// fallback types.
func (t PlantType) Valid() bool {
	switch t {
	case PlantMixed, PlantUnknown:
		return true
	}
	for _, known := range KnownPlantTypes {
		if t == known {
			return true
		}
	}
	return false
}

// EventType identifies the kind of care event. Treatment events additionally
// carry a ConditionName on the CareEvent record; the legacy compound display
// form "Treat: <condition>" is produced by CareEvent.DisplayType, never stored.
type EventType string

const (
	EventWatering  EventType = "watering"
	EventFertilize EventType = "fertilize"
	EventInspect   EventType = "inspect"
	EventPrune     EventType = "prune"
	EventScan      EventType = "scan"
	EventTreatment EventType = "treatment"
)

// ConditionKind classifies a detected condition for transition priority:
// diseases and pests outrank beneficial insects and healthy observations.
type ConditionKind string

const (
	KindHealthy    ConditionKind = "healthy"
	KindDisease    ConditionKind = "disease"
	KindPest       ConditionKind = "pest"
	KindBeneficial ConditionKind = "beneficial"
)

// Treatable reports whether the kind warrants a treatment schedule.
func (k ConditionKind) Treatable() bool {
	return k == KindDisease || k == KindPest
}

// PlantState is the derived condition state used by the transition handler.
type PlantState string

const (
	StateUnscanned PlantState = "unscanned"
	StateHealthy   PlantState = "healthy"
	StateDiseased  PlantState = "diseased"
)

// HealthyConditionName is the canonical condition label recorded on scan
// events when no treatable condition was detected.
const HealthyConditionName = "Healthy"
