package models

// GarmentType is a fixed vocabulary of garment categories recognized by the
// upstream outfit segmentation stage. Unknown values coming from upstream
// CV are coerced to GarmentOther rather than rejected.
type GarmentType string

const (
	GarmentJacket  GarmentType = "jacket"
	GarmentCoat    GarmentType = "coat"
	GarmentShirt   GarmentType = "shirt"
	GarmentTShirt  GarmentType = "t_shirt"
	GarmentSweater GarmentType = "sweater"
	GarmentDress   GarmentType = "dress"
	GarmentPants   GarmentType = "pants"
	GarmentJeans   GarmentType = "jeans"
	GarmentShorts  GarmentType = "shorts"
	GarmentSkirt   GarmentType = "skirt"
	GarmentSneaker GarmentType = "sneakers"
	GarmentLoafer  GarmentType = "loafers"
	GarmentBoot    GarmentType = "boots"
	GarmentSandal  GarmentType = "sandals"
	GarmentOther   GarmentType = "other"
)

// ParseGarmentType coerces an upstream string into the fixed vocabulary,
// falling back to GarmentOther for anything unrecognized. GarmentOther
// contributes 0 to type_score by construction (see scoring.TypeScore).
func ParseGarmentType(s string) GarmentType {
	switch GarmentType(s) {
	case GarmentJacket, GarmentCoat, GarmentShirt, GarmentTShirt, GarmentSweater,
		GarmentDress, GarmentPants, GarmentJeans, GarmentShorts, GarmentSkirt,
		GarmentSneaker, GarmentLoafer, GarmentBoot, GarmentSandal:
		return GarmentType(s)
	default:
		return GarmentOther
	}
}

// visuallyCloseClasses groups garment types considered visually
// interchangeable for the purposes of type_score.
var visuallyCloseClasses = []map[GarmentType]bool{
	{GarmentJacket: true, GarmentCoat: true},
	{GarmentPants: true, GarmentJeans: true},
	{GarmentSneaker: true, GarmentLoafer: true},
}

// VisuallyClose reports whether two garment types fall in the same
// equivalence class for a "close but not exact" type match.
func VisuallyClose(a, b GarmentType) bool {
	if a == b {
		return false // exact match is handled separately
	}
	for _, class := range visuallyCloseClasses {
		if class[a] && class[b] {
			return true
		}
	}
	return false
}

// HeightCategory buckets a tracklet's estimated physique.
type HeightCategory string

const (
	HeightShort  HeightCategory = "short"
	HeightMedium HeightCategory = "medium"
	HeightTall   HeightCategory = "tall"
)

// Adjacent reports whether two height categories are next to each other
// in the short < medium < tall ordering.
func (h HeightCategory) Adjacent(other HeightCategory) bool {
	order := map[HeightCategory]int{HeightShort: 0, HeightMedium: 1, HeightTall: 2}
	a, okA := order[h]
	b, okB := order[other]
	if !okA || !okB {
		return false
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff == 1
}

// Decision is the outcome of the per-target decision rule.
type Decision string

const (
	DecisionLinked     Decision = "linked"
	DecisionAmbiguous  Decision = "ambiguous"
	DecisionNewVisitor Decision = "new_visitor"
)

// PinKind distinguishes entrance cameras from ordinary ones.
type PinKind string

const (
	PinEntrance PinKind = "entrance"
	PinNormal   PinKind = "normal"
)
