package jira

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/jira-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedOperationType = errors.New("unsupported operation type")
	ErrInvalidDataTypeIssue     = errors.New("invalid data type for issue operation")
)

// BatchOperation represents a single issue operation in a batch. Operations
// in a batch are independent; one failing never rolls back another.
type BatchOperation struct {
	ID string
	// Type is one of "create", "update", "delete", "get", "comment",
	// "assign", "transition".
	Type string
	// Key is the issue key the operation targets. Unused for "create".
	Key string
	// Data carries the operation payload: field maps for create and update,
	// a string for comment, assign and transition.
	Data     interface{}
	Callback func(result *BatchResult)
}

// BatchResult represents the result of a batch operation.
type BatchResult struct {
	ID       string
	Success  bool
	Data     interface{}
	Error    error
	Duration time.Duration
}

// BatchExecutor executes independent issue operations with bounded
// concurrency. Per-item results report partial failure; each underlying
// call stays all-or-nothing.
type BatchExecutor struct {
	issues      IssuesClient
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(issues IssuesClient, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	return &BatchExecutor{
		issues:      issues,
		concurrency: concurrency,
		timeout:     constants.DefaultHTTPTimeout,
	}
}

// SetTimeout sets the per-operation timeout.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs a batch of operations.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, operation := range operations {
		waitGroup.Add(1)

		go func(index int, operation BatchOperation) {
			defer waitGroup.Done()

			// Acquire semaphore
			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			opCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeOperation(opCtx, operation)
			result.Duration = time.Since(start)
			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}
		}(index, operation)
	}

	waitGroup.Wait()

	return results, nil
}

//nolint:cyclop // one case per operation type
func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	result := &BatchResult{ID: operation.ID}

	var (
		data interface{}
		err  error
	)

	switch operation.Type {
	case "create":
		data, err = b.executeCreate(ctx, operation)
	case "update":
		err = b.executeUpdate(ctx, operation)
	case "delete":
		err = b.issues.Delete(ctx, operation.Key, false)
	case "get":
		data, err = b.issues.Get(ctx, operation.Key, nil)
	case "comment":
		data, err = b.executeComment(ctx, operation)
	case "assign":
		err = b.executeAssign(ctx, operation)
	case "transition":
		err = b.executeTransition(ctx, operation)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedOperationType, operation.Type)
	}

	result.Success = err == nil
	result.Data = data
	result.Error = err

	return result
}

func (b *BatchExecutor) executeCreate(ctx context.Context, operation BatchOperation) (interface{}, error) {
	fields, ok := operation.Data.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w create", ErrInvalidDataTypeIssue)
	}

	return b.issues.Create(ctx, fields)
}

func (b *BatchExecutor) executeUpdate(ctx context.Context, operation BatchOperation) error {
	fields, ok := operation.Data.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%w update", ErrInvalidDataTypeIssue)
	}

	return b.issues.Update(ctx, operation.Key, fields)
}

func (b *BatchExecutor) executeComment(ctx context.Context, operation BatchOperation) (interface{}, error) {
	body, ok := operation.Data.(string)
	if !ok {
		return nil, fmt.Errorf("%w comment", ErrInvalidDataTypeIssue)
	}

	return b.issues.AddComment(ctx, operation.Key, body)
}

func (b *BatchExecutor) executeAssign(ctx context.Context, operation BatchOperation) error {
	accountID, ok := operation.Data.(string)
	if !ok {
		return fmt.Errorf("%w assign", ErrInvalidDataTypeIssue)
	}

	return b.issues.Assign(ctx, operation.Key, accountID)
}

func (b *BatchExecutor) executeTransition(ctx context.Context, operation BatchOperation) error {
	transitionID, ok := operation.Data.(string)
	if !ok {
		return fmt.Errorf("%w transition", ErrInvalidDataTypeIssue)
	}

	return b.issues.Transition(ctx, operation.Key, transitionID, nil)
}

// BatchBuilder helps build batch operations.
type BatchBuilder struct {
	operations []BatchOperation
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{
		operations: make([]BatchOperation, 0),
	}
}

// AddCreate adds an issue creation operation.
func (b *BatchBuilder) AddCreate(id string, fields map[string]interface{}) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:   id,
		Type: "create",
		Data: fields,
	})

	return b
}

// AddUpdate adds an issue update operation.
func (b *BatchBuilder) AddUpdate(id, key string, fields map[string]interface{}) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:   id,
		Type: "update",
		Key:  key,
		Data: fields,
	})

	return b
}

// AddDelete adds an issue deletion operation.
func (b *BatchBuilder) AddDelete(id, key string) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:   id,
		Type: "delete",
		Key:  key,
	})

	return b
}

// AddGet adds an issue get operation.
func (b *BatchBuilder) AddGet(id, key string) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:   id,
		Type: "get",
		Key:  key,
	})

	return b
}

// AddComment adds a comment operation.
func (b *BatchBuilder) AddComment(id, key, body string) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:   id,
		Type: "comment",
		Key:  key,
		Data: body,
	})

	return b
}

// AddAssign adds an assignment operation.
func (b *BatchBuilder) AddAssign(id, key, accountID string) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:   id,
		Type: "assign",
		Key:  key,
		Data: accountID,
	})

	return b
}

// AddTransition adds a workflow transition operation.
func (b *BatchBuilder) AddTransition(id, key, transitionID string) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:   id,
		Type: "transition",
		Key:  key,
		Data: transitionID,
	})

	return b
}

// AddOperation adds a custom operation.
func (b *BatchBuilder) AddOperation(operation BatchOperation) *BatchBuilder {
	b.operations = append(b.operations, operation)

	return b
}

// Build returns the built operations.
func (b *BatchBuilder) Build() []BatchOperation {
	return b.operations
}
