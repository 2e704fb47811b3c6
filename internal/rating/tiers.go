package rating

// TierFor maps a rating to its display tier.
func TierFor(rating int) string {
	switch {
	case rating < 1200:
		return "Newbie"
	case rating < 1400:
		return "Pupil"
	case rating < 1600:
		return "Specialist"
	case rating < 1900:
		return "Expert"
	case rating < 2100:
		return "Candidate Master"
	case rating < 2300:
		return "Master"
	default:
		return "Grandmaster"
	}
}
