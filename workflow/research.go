package workflow

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"unicode"

	"github.com/kbukum/stepflow/graph"
	"github.com/kbukum/stepflow/llm"
)

// Record fields of the research workflow.
var (
	ResearchQuery    = graph.Field[string]{Key: "query"}
	ResearchSubject  = graph.Field[string]{Key: "subject"}
	ResearchSections = graph.Field[map[string]any]{Key: "sections"}
	ResearchReport   = graph.Field[string]{Key: "report"}
)

// NotAvailable stands in for a section that produced nothing.
const NotAvailable = "Information not available"

type researchSection struct {
	step    string
	heading string
	prompt  *llm.Template
}

var researchSections = []researchSection{
	{"basic_info", "Basic Information and Classification", llm.NewTemplate(`Provide basic information about {subject}, including:
- Scientific name and classification
- Physical description and size
- Basic habitat information
- Diet type (carnivore, herbivore, omnivore)
- Lifespan

Be factual and concise.`)},
	{"habitat", "Habitat and Geographic Distribution", llm.NewTemplate(`Research the habitat and geographic distribution of {subject}:
- Current geographic range and distribution
- Preferred habitats and ecosystems
- Migration patterns (if applicable)
- Historical vs current range changes
- Climate and environmental requirements

Provide detailed, factual information.`)},
	{"behavior", "Behavior and Social Structure", llm.NewTemplate(`Research the behavior and social structure of {subject}:
- Social organization and group dynamics
- Mating and reproductive behavior
- Communication methods
- Hunting/feeding behaviors
- Parental care and offspring development
- Notable behavioral adaptations

Provide comprehensive behavioral insights.`)},
	{"conservation", "Conservation Status and Threats", llm.NewTemplate(`Research the conservation status and threats facing {subject}:
- Current IUCN Red List status
- Population trends and estimates
- Major threats (habitat loss, climate change, hunting, etc.)
- Conservation efforts and programs
- Success stories or ongoing challenges
- Future outlook

Focus on current, factual conservation information.`)},
	{"evolution", "Evolutionary History and Relationships", llm.NewTemplate(`Research the evolutionary history of {subject}:
- Evolutionary origins and timeline
- Fossil record and prehistoric relatives
- Key evolutionary adaptations
- Closest living relatives
- Phylogenetic relationships
- Interesting evolutionary facts

Provide scientifically accurate evolutionary information.`)},
}

var queryPhrases = []string{"research", "tell me about", "information about", "study", "analyze"}

// ExtractSubject strips the request phrasing from a query and title-cases
// what remains: "Research polar bears" becomes "Polar Bears".
func ExtractSubject(query string) string {
	q := strings.ToLower(query)
	for _, p := range queryPhrases {
		q = strings.ReplaceAll(q, p, "")
	}
	return titleCase(strings.TrimSpace(q))
}

// titleCase upper-cases every letter that follows a non-letter.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

func researchWorkflow() *Workflow {
	return &Workflow{
		Name:        "research",
		Description: "Research an animal across five domains and compile a markdown report.",
		register: func(reg *graph.Registry, deps Deps) {
			reg.RegisterFunc("extract_subject", func(_ context.Context, rec graph.Record) (graph.Update, error) {
				query, err := ResearchQuery.Read(rec)
				if err != nil {
					return nil, err
				}
				subject := ExtractSubject(query)
				if subject == "" {
					return nil, fmt.Errorf("research: no subject in query %q", query)
				}
				u := ResearchSubject.Set(nil, subject)
				return ResearchSections.Set(u, map[string]any{}), nil
			})
			for _, sec := range researchSections {
				reg.RegisterFunc(sec.step, researchStep(deps, sec))
			}
			reg.RegisterFunc("synthesize", func(_ context.Context, rec graph.Record) (graph.Update, error) {
				subject, err := ResearchSubject.Read(rec)
				if err != nil {
					return nil, err
				}
				return ResearchReport.Set(nil, renderResearchReport(subject, ResearchSections.Get(rec, nil))), nil
			})
		},
		input: func(subject string) (graph.Record, error) {
			if err := requireSubject(subject, "subject"); err != nil {
				return nil, err
			}
			return graph.Record{ResearchQuery.Key: "Research " + subject}, nil
		},
		report: func(rec graph.Record) (string, error) {
			return ResearchReport.Read(rec)
		},
	}
}

// researchStep asks the model for one section and returns a copy of the
// sections map with that entry added.
func researchStep(deps Deps, sec researchSection) graph.StepFunc {
	return func(ctx context.Context, rec graph.Record) (graph.Update, error) {
		subject, err := ResearchSubject.Read(rec)
		if err != nil {
			return nil, err
		}
		prompt, err := sec.prompt.Render(map[string]string{"subject": subject})
		if err != nil {
			return nil, err
		}
		text, err := llm.Prompt(ctx, deps.LLM, prompt, llm.WithTemperature(0))
		if err != nil {
			return nil, err
		}
		sections := maps.Clone(ResearchSections.Get(rec, nil))
		if sections == nil {
			sections = map[string]any{}
		}
		sections[sec.step] = strings.TrimSpace(text)
		return ResearchSections.Set(nil, sections), nil
	}
}

func renderResearchReport(subject string, sections map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Comprehensive Research Report: %s\n", subject)
	for i, sec := range researchSections {
		text, _ := sections[sec.step].(string)
		if text == "" {
			text = NotAvailable
		}
		fmt.Fprintf(&b, "\n## %d. %s\n%s\n", i+1, sec.heading, text)
	}
	fmt.Fprintf(&b, "\n---\n*This report was compiled by researching %s across multiple domains of knowledge.*\n", subject)
	return b.String()
}
