package transform

// Field-id mappings for each stream. The source addresses attributes by
// opaque field ids ("field_197"); which id means what is deployment
// configuration, so the mappings are injected rather than hardcoded.

// ScoreFields names the six numeric fields of one assessment cycle.
type ScoreFields struct {
	Vision   string `koanf:"vision"`
	Effort   string `koanf:"effort"`
	Systems  string `koanf:"systems"`
	Practice string `koanf:"practice"`
	Attitude string `koanf:"attitude"`
	Overall  string `koanf:"overall"`
}

// AssessmentFields maps the student-and-scores stream.
type AssessmentFields struct {
	Email         string         `koanf:"email"`
	Name          string         `koanf:"name"`
	Establishment string         `koanf:"establishment"`
	YearGroup     string         `koanf:"year_group"`
	Course        string         `koanf:"course"`
	Faculty       string         `koanf:"faculty"`
	CompletedAt   string         `koanf:"completed_at"`
	Cycles        [3]ScoreFields `koanf:"cycles"`
}

// QuestionFields maps one questionnaire question to its per-cycle
// response field ids.
type QuestionFields struct {
	ID     string    `koanf:"id"`
	Cycles [3]string `koanf:"cycles"`
}

// ResponseFields maps the question-response stream.
type ResponseFields struct {
	Email       string           `koanf:"email"`
	CompletedAt string           `koanf:"completed_at"`
	Questions   []QuestionFields `koanf:"questions"`
}

// CommentFields maps the comment stream. Each record carries the
// free-text comments of one student for one cycle.
type CommentFields struct {
	Email      string `koanf:"email"`
	Cycle      string `koanf:"cycle"`
	Date       string `koanf:"date"`
	Reflection string `koanf:"reflection"`
	Goal       string `koanf:"goal"`
}

// EstablishmentFields maps the establishment stream.
type EstablishmentFields struct {
	Name         string `koanf:"name"`
	CalendarYear string `koanf:"calendar_year"` // boolean-ish flag field
}

// Fields bundles every stream mapping.
type Fields struct {
	Establishment EstablishmentFields `koanf:"establishment"`
	Assessment    AssessmentFields    `koanf:"assessment"`
	Response      ResponseFields      `koanf:"response"`
	Comment       CommentFields       `koanf:"comment"`
}
