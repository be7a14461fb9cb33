// Package prompt assembles model prompts from typed configuration.
// Every function here is pure.
package prompt

import (
	"strings"

	"github.com/pario-ai/folio/pkg/llm"
	"github.com/pario-ai/folio/pkg/models"
)

// Placement says where a block of text is injected.
type Placement int

const (
	// InSystem appends the block to the system message.
	InSystem Placement = iota
	// BeforeInput inserts the block as messages just before the current input.
	BeforeInput
	// Omit leaves the block out.
	Omit
)

// DefaultPersona is the portfolio chatbot instruction.
const DefaultPersona = "You are a chatbot for a personal portfolio website. " +
	"You impersonate the website's owner and answer questions about the website's content, projects, and personal information. " +
	"Answer the user's questions based on the below context. " +
	"If the context does not contain the answer, say that you don't know rather than making something up. " +
	"Whenever it makes sense, provide links to pages that contain more information about the topic from the given context. " +
	"Format your messages in markdown format."

// DefaultDelimiter separates documents in the assembled context.
const DefaultDelimiter = "\n------\n"

// RewriteInstruction asks the model for a standalone search query.
const RewriteInstruction = "Given the above conversation, generate a search query to look up in order to get information relevant to the current question. " +
	"Don't leave out any relevant keywords. Only return the query and no other text."

// Config shapes the answer prompt.
type Config struct {
	Persona       string
	ContextHeader string
	Delimiter     string
	// ContextPlacement is where retrieved documents go: InSystem or BeforeInput.
	ContextPlacement Placement
	// HistoryPlacement is where prior turns go: BeforeInput or Omit.
	HistoryPlacement Placement
}

// Default returns the portfolio prompt configuration.
func Default() Config {
	return Config{
		Persona:          DefaultPersona,
		ContextHeader:    "Context:",
		Delimiter:        DefaultDelimiter,
		ContextPlacement: InSystem,
		HistoryPlacement: BeforeInput,
	}
}

// FormatDocument renders one document as a context block.
func FormatDocument(d models.RetrievedDocument) string {
	return "Page URL: " + d.URL + "\n\nPage content:\n" + d.Content
}

// FormatContext joins documents in the given order with delimiter.
func FormatContext(docs []models.RetrievedDocument, delimiter string) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = FormatDocument(d)
	}
	return strings.Join(parts, delimiter)
}

// History converts conversation turns to model messages, keeping order.
// Unknown roles are treated as user turns.
func History(turns []models.ChatMessage) []llm.Message {
	out := make([]llm.Message, len(turns))
	for i, t := range turns {
		role := llm.RoleUser
		if t.Role == models.RoleAssistant {
			role = llm.RoleAssistant
		}
		out[i] = llm.Message{Role: role, Content: t.Content}
	}
	return out
}

// Build produces the answer prompt.
func Build(cfg Config, docs []models.RetrievedDocument, history []models.ChatMessage, input string) []llm.Message {
	delim := cfg.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}
	context := FormatContext(docs, delim)
	contextBlock := strings.TrimSpace(cfg.ContextHeader + "\n" + context)

	system := cfg.Persona
	if cfg.ContextPlacement == InSystem {
		system += "\n\n" + contextBlock
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	if cfg.HistoryPlacement == BeforeInput {
		msgs = append(msgs, History(history)...)
	}
	if cfg.ContextPlacement == BeforeInput {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: contextBlock})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: input})
}

// BuildRewrite produces the query-rewrite prompt: the conversation, the
// current input, then the fixed instruction.
func BuildRewrite(history []models.ChatMessage, input string) []llm.Message {
	msgs := History(history)
	msgs = append(msgs,
		llm.Message{Role: llm.RoleUser, Content: input},
		llm.Message{Role: llm.RoleUser, Content: RewriteInstruction},
	)
	return msgs
}
