package persona

import (
	"fmt"
	"time"
)

// Record is one synthesized persona. It is created at most once per
// uploaded asset and stays immutable until the asset changes.
type Record struct {
	Name        string    `json:"name"`
	Description string    `json:"description"` // model-authored Markdown
	CreatedAt   time.Time `json:"createdAt"`
}

// Greeting renders the synthetic opening transcript entry for a persona.
func Greeting(name string) string {
	return fmt.Sprintf("Hi, I'm %s! Ask me anything you like.", name)
}
