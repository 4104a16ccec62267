package assistant

import (
	"errors"
	"fmt"
)

// NoKnowledgeMessage is returned by Ask when the knowledge base has nothing indexed.
const NoKnowledgeMessage = "The knowledge base is empty. Add some papers before asking questions."

// NotFoundError indicates that no paper has the requested title.
type NotFoundError struct {
	Title string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no paper titled %q", e.Title)
}

// IsNotFound reports whether err is a title lookup miss.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
