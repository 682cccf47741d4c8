package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/bamtlab/conductor"
)

func conductorTemplateNotFound(templateID string) error {
	return fmt.Errorf("%w: %s", conductor.ErrTemplateNotFound, templateID)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
