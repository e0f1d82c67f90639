package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptClassifierV1    PromptID = "classifier_v1"
	PromptClarificationV1 PromptID = "clarification_v1"
	PromptSlideDeckV1     PromptID = "slide_deck_v1"
	PromptUpdateContentV1 PromptID = "update_content_v1"
	PromptCodeDeckV1      PromptID = "code_deck_v1"
)

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	systemPath, userPath, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}
	system, err := readEmbeddedText(systemPath)
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

func resolvePromptFiles(id PromptID) (systemFile string, userFile string, err error) {
	switch id {
	case PromptClassifierV1:
		return "templates/classifier_v1.system.txt", "templates/classifier_v1.user.txt", nil
	case PromptClarificationV1:
		return "templates/clarification_v1.system.txt", "templates/clarification_v1.user.txt", nil
	case PromptSlideDeckV1:
		return "templates/slide_deck_v1.system.txt", "templates/slide_deck_v1.user.txt", nil
	case PromptUpdateContentV1:
		return "templates/update_content_v1.system.txt", "templates/update_content_v1.user.txt", nil
	case PromptCodeDeckV1:
		return "templates/code_deck_v1.system.txt", "templates/code_deck_v1.user.txt", nil
	default:
		return "", "", fmt.Errorf("unknown prompt id: %s", id)
	}
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
