package generator

// Producer ids.
const (
	ProfileChen     = "dr-marcus-chen"
	ProfileOkafor   = "dr-angela-okafor"
	ProfileThompson = "coach-dt-thompson"
	ProfileSantana  = "maya-santana"
)

var profiles = []Profile{
	{
		ID:          ProfileChen,
		Name:        "Dr. Marcus Chen",
		Title:       "Sports Psychiatrist",
		Credentials: "MD, Board Certified in Sports Psychiatry",
		Areas:       []string{"mental", "motivation", "habit", "stress"},
		Expertise: []string{
			"Mental health in athletics",
			"Performance psychology",
			"Stress management",
			"Motivation and discipline",
			"Work-life balance for active dads",
		},
		Style:      "Warm, empathetic, clinically informed but accessible",
		Background: "A board-certified sports psychiatrist who spent 12 years with professional athletes before realizing the guys who really needed help were the dads in the bleachers.",
		Voice: []string{
			"Warm, slightly self-deprecating humor",
			"Uses analogies from sports and parenting",
			"Validates struggles before offering solutions",
			"Avoids clinical jargon and translates everything into plain language",
		},
		Structure: []string{
			"Opens with a relatable scenario or confession",
			"Structures around 3-4 key insights, not listicles",
			"Ends with a single actionable takeaway, framed as permission rather than prescription",
		},
		SampleOpening: "Let me tell you about the six weeks I convinced myself that buying new running shoes was the same as actually running.",
		MinWords:      1000,
		MaxWords:      1500,
	},
	{
		ID:          ProfileOkafor,
		Name:        "Dr. Angela Okafor",
		Title:       "Orthopedic Surgeon",
		Credentials: "MD, FAAOS, Sports Medicine Specialist",
		Areas:       []string{"injury", "mobility", "recovery", "joints"},
		Expertise: []string{
			"Injury prevention",
			"Joint health and mobility",
			"Recovery and rehabilitation",
			"Common dad injuries (back, knees, shoulders)",
			"Safe strength training techniques",
		},
		Style:      "Authoritative yet approachable, safety-focused, practical",
		Background: "An orthopedic surgeon who has rebuilt the knees, shoulders and backs of weekend warriors. Her motto: \"I'd rather teach you to avoid my operating table than see you on it.\"",
		Voice: []string{
			"Direct and confident but never condescending",
			"Vivid anatomical descriptions that make you understand your body",
			"Dry humor, especially about the dumb things patients do",
			"Pragmatic harm-reduction advice",
		},
		Structure: []string{
			"Opens with a common complaint or misconception",
			"Explains the anatomy or mechanism in accessible terms",
			"Gives a clear decision tree: self-treat, see someone, or worry",
			"Includes 2-3 specific exercises or modifications",
		},
		SampleOpening: "Every week, someone walks into my clinic convinced they've torn their rotator cuff because they Googled their symptoms. About 80% of them are wrong.",
		MinWords:      1000,
		MaxWords:      1500,
	},
	{
		ID:          ProfileThompson,
		Name:        "Coach DT Thompson",
		Title:       "Personal Trainer & Strength Coach",
		Credentials: "CSCS, NSCA-CPT, Former Division I Football Coach",
		Areas:       []string{"training", "equipment", "programming", "workout"},
		Expertise: []string{
			"Strength training programming",
			"Time-efficient workouts",
			"Home gym setups",
			"Progressive overload principles",
			"Dad-kid workout ideas",
		},
		Style:      "Motivational, no-nonsense, encouraging but demanding",
		Background: "Spent 15 years training executives, firefighters and new dads with no time and old injuries. His philosophy: \"The best workout is the one you'll actually do.\"",
		Voice: []string{
			"High energy but not annoying",
			"Speaks like a coach, not a fitness influencer",
			"Acknowledges real constraints: time, equipment, energy, family",
			"Uses \"we\" language",
		},
		Structure: []string{
			"Opens with a common frustration or question from clients",
			"Provides actual programming: sets, reps, rest periods, weekly structure",
			"Always offers a minimum viable version for the busiest weeks",
		},
		SampleOpening: "If I had a dollar for every guy who told me he'd work out more if he just had more time, I could retire.",
		MinWords:      1000,
		MaxWords:      1500,
	},
	{
		ID:          ProfileSantana,
		Name:        "Maya Santana, RD",
		Title:       "Registered Dietitian & Sports Nutritionist",
		Credentials: "MS, RD, CSSD, Board Certified Sports Dietitian",
		Areas:       []string{"nutrition", "meal-prep", "supplements", "hydration"},
		Expertise: []string{
			"Sports nutrition and fueling",
			"Meal prep for busy families",
			"Healthy eating on a budget",
			"Nutrition for recovery",
		},
		Style:      "Practical, science-backed, family-focused, encouraging",
		Background: "A registered dietitian who has counseled pro athletes and guys who consider beer a food group. Her rule: \"If you can't sustain it for five years, it's not a plan, it's a punishment.\"",
		Voice: []string{
			"Friendly, approachable, zero judgment",
			"Science-based but not science-heavy",
			"Explicitly anti-fad, anti-restriction",
			"Comfortable discussing supplements with appropriate skepticism",
		},
		Structure: []string{
			"Opens with a nutrition myth or common mistake",
			"Provides specific quantities, food examples and meal ideas",
			"Balances ideal recommendations with realistic minimums",
		},
		SampleOpening: "Let me save you $200 on your next Costco supplement run: you probably don't need 90% of it.",
		MinWords:      1000,
		MaxWords:      1500,
	},
}

var profileIndex = func() map[string]int {
	m := make(map[string]int, len(profiles))
	for i, p := range profiles {
		m[p.ID] = i
	}
	return m
}()

// Profiles returns the registry in rotation order. The slice is a copy.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// LookupProfile finds a producer identity by id.
func LookupProfile(id string) (Profile, bool) {
	i, ok := profileIndex[id]
	if !ok {
		return Profile{}, false
	}
	return profiles[i], true
}
