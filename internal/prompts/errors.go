package prompts

import "errors"

// Domain errors for prompt lookups.
var ErrInvalidStage = errors.New("stage is not a recognized conversational stage")
