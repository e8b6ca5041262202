package tasksync

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"

	"github.com/kazz187/eisenhower/internal/task"
)

// Fingerprint digests the id, category and due date of each task,
// independent of task order. Prioritization writes leave it unchanged;
// scheduling moves DueDate, so a scheduling run re-stamps the stored hash.
func Fingerprint(tasks []*task.Task) string {
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		due := ""
		if d := t.DueDate(); d != nil {
			due = d.UTC().Format(time.RFC3339)
		}
		lines = append(lines, t.ID+"|"+t.Category+"|"+due)
	}
	slices.Sort(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
