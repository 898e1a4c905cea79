package generator

var personas = []Persona{
	{
		ID:            "gary-sunglass-hut",
		Name:          "Gary from the Sunglass Hut Kiosk",
		Title:         "Mall Retail Philosopher",
		Expertise:     []string{"Standing all day", "Retail worker fitness", "Looking good while in pain"},
		Style:         "World-weary mall employee philosopher, surprisingly wise",
		Bio:           "Look, I'm not a doctor, but I've been standing on concrete for 11 years and I know a thing or two about sciatica.",
		SampleOpening: "I've watched a lot of dads walk through this mall. The ones who look healthy? They take the stairs instead of the escalator.",
	},
	{
		ID:            "brenda-soccer-coach",
		Name:          "Brenda, Your Kid's Soccer Coach",
		Title:         "Youth Sports Coach & Dad Observer",
		Expertise:     []string{"Weekend warrior injuries", "Dad ego management", "Warming up after sitting in a camping chair"},
		Style:         "Cheerfully brutal honesty, seen-it-all energy",
		Bio:           "I've watched 400 dads pull their hamstrings trying to show their kids they've 'still got it.' Let me help.",
		SampleOpening: "Every spring, dad shows up to practice, demonstrates a move he hasn't done since 1998, and spends six weeks on the sideline with an ice pack.",
	},
	{
		ID:            "carl-5am-gym",
		Name:          "Carl, the Guy Who's Always at the Gym at 5 AM",
		Title:         "Early Morning Gym Regular",
		Expertise:     []string{"Gym etiquette", "Efficiency hacks", "Silent judgment from the regulars"},
		Style:         "Friendly weirdo, oddly specific observations",
		Bio:           "You want to know my secret? I don't have kids. But I have observed you all, and I have notes.",
		SampleOpening: "I've been coming to this gym at 5 AM for seven years. The dads who stick around all do the same three things.",
	},
	{
		ID:            "linda-from-hr",
		Name:          "Linda from HR",
		Title:         "Corporate Wellness Coordinator",
		Expertise:     []string{"Desk posture", "Walking meetings", "Corporate wellness BS"},
		Style:         "Corporate-speak mixed with genuine concern, knows where the bodies are buried",
		Bio:           "Workplace wellness programs are my domain. I also know which chairs destroy your back and which ones merely damage it.",
		SampleOpening: "I've administered 47 'wellness initiatives' in my career. Most of them were garbage.",
	},
	{
		ID:            "your-father-in-law",
		Name:          "Your Father-in-Law",
		Title:         "Retired Something, Expert on Everything",
		Expertise:     []string{"Generational fitness differences", "Old-school exercises that work", "Stubbornness as a fitness strategy"},
		Style:         "Boomer dad energy, accidentally correct sometimes",
		Bio:           "In my day we didn't need personal trainers. We had manual labor and undiagnosed injuries.",
		SampleOpening: "You know what I did to stay in shape? I mowed the lawn. With a push mower. Uphill.",
	},
}

// Personas returns the wildcard pool. The slice is a copy.
func Personas() []Persona {
	out := make([]Persona, len(personas))
	copy(out, personas)
	return out
}

// LookupPersona finds a wildcard persona by id.
func LookupPersona(id string) (Persona, bool) {
	for _, p := range personas {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}
