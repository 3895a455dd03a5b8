// internal/matching/platform.go
package matching

const (
	bookingDepthFull     = 25
	bookingDepthFallback = 10

	profileComplete = 15
	profileBasic    = 5

	// MaxPlatformScore is the highest value PlatformScore can return.
	MaxPlatformScore = bookingDepthFull + profileComplete

	introSlotsForFullDepth = 3
)

// PlatformScore rates a therapist's engagement with the platform on [0, 40]:
// booking depth (25/10/0) plus profile completeness (15/5/0).
func PlatformScore(t *TherapistCandidate, introSlotsWithin7Days, introSlotsWithin14Days int) int {
	return bookingDepthScore(introSlotsWithin7Days, introSlotsWithin14Days) + profileScore(t)
}

func bookingDepthScore(within7, within14 int) int {
	switch {
	case within7 >= introSlotsForFullDepth:
		return bookingDepthFull
	case within14 >= 1:
		return bookingDepthFallback
	default:
		return 0
	}
}

func profileScore(t *TherapistCandidate) int {
	if t == nil {
		return 0
	}
	hasPhoto := t.PhotoURL != ""
	hasCity := t.City != ""
	switch {
	case hasPhoto && hasCity && t.ApproachText != "" && t.WhoComesToMe != "":
		return profileComplete
	case hasPhoto && hasCity:
		return profileBasic
	default:
		return 0
	}
}
