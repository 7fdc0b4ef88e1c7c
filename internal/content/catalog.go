// Package content holds the read-only study catalog: drugs, quiz questions,
// clinical cases, interactions, glossary, neurotransmitters and tips.
//
// A Catalog is immutable once built. Reloads produce a new Catalog that is
// swapped in by Holder, so a turn that grabbed a catalog keeps a consistent
// view for its whole duration.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var defaultCatalog []byte

// Difficulty levels accepted for quiz questions.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Interaction severities.
const (
	SeveritySevere   = "severe"
	SeverityModerate = "moderate"
	SeverityMild     = "mild"
)

// ErrInvalid marks a catalog that failed validation.
var ErrInvalid = errors.New("content: invalid catalog")

// Drug is a single reference entry.
type Drug struct {
	Name         string   `yaml:"name" validate:"required"`
	Class        string   `yaml:"class" validate:"required"`
	Aliases      []string `yaml:"aliases" validate:"dive,required"`
	Mechanism    string   `yaml:"mechanism" validate:"required"`
	Indications  []string `yaml:"indications" validate:"min=1,dive,required"`
	SideEffects  []string `yaml:"side_effects" validate:"dive,required"`
	Interactions []string `yaml:"interactions" validate:"dive,required"`
	Dosage       string   `yaml:"dosage"`
}

// Question is a multiple choice quiz item.
type Question struct {
	ID          string   `yaml:"id" validate:"required,max=32"`
	Category    string   `yaml:"category" validate:"required"`
	Difficulty  string   `yaml:"difficulty" validate:"oneof=easy medium hard"`
	Text        string   `yaml:"question" validate:"required"`
	Options     []string `yaml:"options" validate:"min=2,max=8,dive,required"`
	Correct     int      `yaml:"correct" validate:"gte=0"`
	Explanation string   `yaml:"explanation" validate:"required"`
}

// Case is a clinical vignette with a single question.
type Case struct {
	ID           int      `yaml:"id" validate:"gt=0"`
	Title        string   `yaml:"title" validate:"required"`
	Presentation string   `yaml:"presentation" validate:"required"`
	Question     string   `yaml:"question" validate:"required"`
	Options      []string `yaml:"options" validate:"min=2,max=8,dive,required"`
	Correct      int      `yaml:"correct" validate:"gte=0"`
	Explanation  string   `yaml:"explanation" validate:"required"`
}

// Interaction describes a known pair. A and B name drugs or drug classes.
type Interaction struct {
	A           string `yaml:"a" validate:"required"`
	B           string `yaml:"b" validate:"required"`
	Severity    string `yaml:"severity" validate:"oneof=severe moderate mild"`
	Description string `yaml:"description" validate:"required"`
}

// Term is a glossary entry.
type Term struct {
	Term       string `yaml:"term" validate:"required"`
	Definition string `yaml:"definition" validate:"required"`
}

// Neurotransmitter describes one transmitter system.
type Neurotransmitter struct {
	Key               string   `yaml:"key" validate:"required,max=24,alphanum"`
	Name              string   `yaml:"name" validate:"required"`
	Synthesis         string   `yaml:"synthesis" validate:"required"`
	Degradation       string   `yaml:"degradation" validate:"required"`
	Receptors         string   `yaml:"receptors" validate:"required"`
	Pathways          []string `yaml:"pathways" validate:"dive,required"`
	ClinicalRelevance string   `yaml:"clinical_relevance" validate:"required"`
	RelatedDrugs      []string `yaml:"related_drugs" validate:"dive,required"`
}

// ClassProfile holds class-level facts used by the comparison report.
type ClassProfile struct {
	Class      string `yaml:"class" validate:"required"`
	Onset      string `yaml:"onset"`
	Withdrawal string `yaml:"withdrawal"`
	Special    string `yaml:"special_populations"`
}

// Counts summarises catalog size for admin replies and logs.
type Counts struct {
	Classes           int
	Drugs             int
	Questions         int
	Cases             int
	Interactions      int
	Glossary          int
	Neurotransmitters int
	Tips              int
}

// Catalog is the validated, indexed study content.
type Catalog struct {
	Classes           []string           `yaml:"classes" validate:"min=1,dive,required"`
	QuizCategories    []string           `yaml:"quiz_categories" validate:"dive,required"`
	Drugs             []Drug             `yaml:"drugs" validate:"min=1,dive"`
	Questions         []Question         `yaml:"questions" validate:"dive"`
	Cases             []Case             `yaml:"cases" validate:"dive"`
	Interactions      []Interaction      `yaml:"interactions" validate:"dive"`
	Glossary          []Term             `yaml:"glossary" validate:"dive"`
	Neurotransmitters []Neurotransmitter `yaml:"neurotransmitters" validate:"dive"`
	Tips              []string           `yaml:"tips" validate:"min=1,dive,required"`
	ClassProfiles     []ClassProfile     `yaml:"class_profiles" validate:"dive"`

	drugByKey     map[string]int
	questionByID  map[string]int
	caseByID      map[int]int
	ntByKey       map[string]int
	drugsByClass  map[string][]int
	searchCorpus  []string
	searchToDrug  []int
	classesFolded map[string]struct{}
	profileByKey  map[string]int
}

var validate = validator.New()

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path; an empty path selects the embedded catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes, validates and indexes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("content: parse: %w", err)
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	c.classesFolded = make(map[string]struct{}, len(c.Classes))
	for _, cl := range c.Classes {
		key := fold(cl)
		if _, dup := c.classesFolded[key]; dup {
			return fmt.Errorf("%w: duplicate class %q", ErrInvalid, cl)
		}
		c.classesFolded[key] = struct{}{}
	}

	c.drugByKey = make(map[string]int, len(c.Drugs)*2)
	c.drugsByClass = make(map[string][]int, len(c.Classes))
	for i, d := range c.Drugs {
		if _, ok := c.classesFolded[fold(d.Class)]; !ok {
			return fmt.Errorf("%w: drug %q has unknown class %q", ErrInvalid, d.Name, d.Class)
		}
		for _, key := range append([]string{d.Name}, d.Aliases...) {
			k := fold(key)
			if j, dup := c.drugByKey[k]; dup && j != i {
				return fmt.Errorf("%w: drug name %q is ambiguous", ErrInvalid, key)
			}
			c.drugByKey[k] = i
		}
		c.drugsByClass[fold(d.Class)] = append(c.drugsByClass[fold(d.Class)], i)
	}

	c.questionByID = make(map[string]int, len(c.Questions))
	for i, q := range c.Questions {
		if q.Correct >= len(q.Options) {
			return fmt.Errorf("%w: question %q correct index %d out of range", ErrInvalid, q.ID, q.Correct)
		}
		if _, dup := c.questionByID[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalid, q.ID)
		}
		c.questionByID[q.ID] = i
	}

	c.caseByID = make(map[int]int, len(c.Cases))
	for i, cs := range c.Cases {
		if cs.Correct >= len(cs.Options) {
			return fmt.Errorf("%w: case %d correct index %d out of range", ErrInvalid, cs.ID, cs.Correct)
		}
		if _, dup := c.caseByID[cs.ID]; dup {
			return fmt.Errorf("%w: duplicate case id %d", ErrInvalid, cs.ID)
		}
		c.caseByID[cs.ID] = i
	}

	c.ntByKey = make(map[string]int, len(c.Neurotransmitters))
	for i, nt := range c.Neurotransmitters {
		if _, dup := c.ntByKey[nt.Key]; dup {
			return fmt.Errorf("%w: duplicate neurotransmitter key %q", ErrInvalid, nt.Key)
		}
		c.ntByKey[nt.Key] = i
	}

	c.profileByKey = make(map[string]int, len(c.ClassProfiles))
	for i, p := range c.ClassProfiles {
		key := fold(p.Class)
		if _, ok := c.classesFolded[key]; !ok {
			return fmt.Errorf("%w: profile for unknown class %q", ErrInvalid, p.Class)
		}
		if _, dup := c.profileByKey[key]; dup {
			return fmt.Errorf("%w: duplicate profile for class %q", ErrInvalid, p.Class)
		}
		c.profileByKey[key] = i
	}

	c.buildSearchCorpus()
	return nil
}

// Counts reports the size of each section.
func (c *Catalog) Counts() Counts {
	return Counts{
		Classes:           len(c.Classes),
		Drugs:             len(c.Drugs),
		Questions:         len(c.Questions),
		Cases:             len(c.Cases),
		Interactions:      len(c.Interactions),
		Glossary:          len(c.Glossary),
		Neurotransmitters: len(c.Neurotransmitters),
		Tips:              len(c.Tips),
	}
}

// Class returns the class at idx.
func (c *Catalog) Class(idx int) (string, bool) {
	if idx < 0 || idx >= len(c.Classes) {
		return "", false
	}
	return c.Classes[idx], true
}

// Drug looks a drug up by name or alias, ignoring case.
func (c *Catalog) Drug(name string) (Drug, bool) {
	i, ok := c.drugByKey[fold(name)]
	if !ok {
		return Drug{}, false
	}
	return c.Drugs[i], true
}

// DrugsByClass lists drugs of a class in catalog order.
func (c *Catalog) DrugsByClass(class string) []Drug {
	idx := c.drugsByClass[fold(class)]
	out := make([]Drug, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.Drugs[i])
	}
	return out
}

// DrugNames lists the names of the given drugs.
func DrugNames(drugs []Drug) []string {
	out := make([]string, len(drugs))
	for i, d := range drugs {
		out[i] = d.Name
	}
	return out
}

// QuizCategory returns the quiz category at idx.
func (c *Catalog) QuizCategory(idx int) (string, bool) {
	if idx < 0 || idx >= len(c.QuizCategories) {
		return "", false
	}
	return c.QuizCategories[idx], true
}

// FilterQuestions returns questions matching category and difficulty.
// An empty filter value matches everything.
func (c *Catalog) FilterQuestions(category, difficulty string) []Question {
	var out []Question
	for _, q := range c.Questions {
		if category != "" && q.Category != category {
			continue
		}
		if difficulty != "" && q.Difficulty != difficulty {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Question looks a question up by id.
func (c *Catalog) Question(id string) (Question, bool) {
	i, ok := c.questionByID[id]
	if !ok {
		return Question{}, false
	}
	return c.Questions[i], true
}

// Case looks a clinical case up by id.
func (c *Catalog) Case(id int) (Case, bool) {
	i, ok := c.caseByID[id]
	if !ok {
		return Case{}, false
	}
	return c.Cases[i], true
}

// Term returns the glossary entry at idx.
func (c *Catalog) Term(idx int) (Term, bool) {
	if idx < 0 || idx >= len(c.Glossary) {
		return Term{}, false
	}
	return c.Glossary[idx], true
}

// Neurotransmitter looks a transmitter up by key.
func (c *Catalog) Neurotransmitter(key string) (Neurotransmitter, bool) {
	i, ok := c.ntByKey[key]
	if !ok {
		return Neurotransmitter{}, false
	}
	return c.Neurotransmitters[i], true
}

// Profile returns the class profile of class.
func (c *Catalog) Profile(class string) (ClassProfile, bool) {
	i, ok := c.profileByKey[fold(class)]
	if !ok {
		return ClassProfile{}, false
	}
	return c.ClassProfiles[i], true
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
