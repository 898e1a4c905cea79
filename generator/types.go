package generator

// Profile is a static producer identity. Registry entries are never mutated.
type Profile struct {
	ID          string
	Name        string
	Title       string
	Credentials string
	// Areas are the topic categories this identity writes about.
	Areas         []string
	Expertise     []string
	Style         string
	Background    string
	Voice         []string
	Structure     []string
	SampleOpening string
	MinWords      int
	MaxWords      int
}

// Persona is a wildcard guest columnist.
type Persona struct {
	ID            string
	Name          string
	Title         string
	Expertise     []string
	Style         string
	Bio           string
	SampleOpening string
}

// Article is one generated piece. Immutable once parsed.
type Article struct {
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Excerpt     string   `json:"excerpt"`
	WordCount   int      `json:"word_count"`
	Tags        []string `json:"tags"`
	AuthorID    string   `json:"author_id"`
	AuthorName  string   `json:"author_name"`
	AuthorTitle string   `json:"author_title"`
}

// ColumnInput is what a writer needs for one column.
type ColumnInput struct {
	Topic   string
	Angle   string
	Related []string
	Avoid   []string
}

// Tip is one short actionable "quick win".
type Tip struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// Product is the gear-corner recommendation block.
type Product struct {
	Name        string   `json:"productName"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Pros        []string `json:"pros"`
	Cons        []string `json:"cons"`
}

// QA is one reader question with its answer.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Expert   string `json:"answeringExpert"`
}

// Editorial holds the short-form sections produced by the editor step.
type Editorial struct {
	Title         string
	Note          string
	Tips          []Tip
	Product       Product
	QA            []QA
	ProgramUpdate string
}

// ProgramContext describes the active multi-week program for prompts.
type ProgramContext struct {
	Title     string
	Week      int
	Milestone string
}

// EditorialInput is the week context handed to the editor step.
type EditorialInput struct {
	CycleIndex int
	Sequence   int
	Main       []Article
	Wildcard   Article
	Program    ProgramContext
}
