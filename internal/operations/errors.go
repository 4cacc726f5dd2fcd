package operations

import (
	"errors"
	"fmt"
	"strings"
)

const (
	StageValidate       = "validate_request"
	StageGetTrackers    = "get_trackers"
	StageDomain         = "domain"
	StageUpdateTrackers = "update_trackers"
)

// ErrPartialWrite matches a PartialWriteError with errors.Is.
var ErrPartialWrite = errors.New("partial write")

// FlowError carries the flow and stage a storage or domain failure happened in. The underlying error
// stays reachable, so its kind can still be matched with errors.Is.
type FlowError struct {
	Flow  Flow
	Stage string
	Code  string
	Err   error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s %s failed (%s): %v", e.Flow, e.Stage, e.Code, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// PartialWriteError is returned when a tracker insert failed after earlier inserts of the same
// run were committed. Nothing is rolled back; Committed lists what now exists.
type PartialWriteError struct {
	Committed []string
	Failed    string
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("insert %s failed after committing %s: %v", e.Failed, strings.Join(e.Committed, ", "), e.Err)
}

func (e *PartialWriteError) Is(target error) bool {
	return target == ErrPartialWrite
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
