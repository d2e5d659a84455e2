// Package toolset implements the generic multi-tool provider: approved
// actions are dispatched to pre-registered tool services (local functions,
// MCP bridges, remote tool connections) through a uniform registry.  Unlike
// the direct provider it needs no per-user credentials, only a non-empty
// capability list.
package toolset

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/viant/structology/conv"

	"github.com/arkadia-labs/approvia/model/outcome"
	"github.com/arkadia-labs/approvia/model/types"
	"github.com/arkadia-labs/approvia/service/executor"
)

const name = "toolset"

// DefaultCallTimeout bounds every tool invocation.
const DefaultCallTimeout = 30 * time.Second

// Service is the toolset provider.
type Service struct {
	registry  *Registry
	converter *conv.Converter
	timeout   time.Duration
}

// Option customises the provider.
type Option func(*Service)

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// New creates a toolset provider over the supplied registry.
func New(registry *Registry, options ...Option) *Service {
	converterOptions := conv.DefaultOptions()
	converterOptions.ClonePointerData = true
	converterOptions.IgnoreUnmapped = true
	converterOptions.AccessUnexported = true

	ret := &Service{
		registry:  registry,
		converter: conv.NewConverter(converterOptions),
		timeout:   DefaultCallTimeout,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Name returns the provider name.
func (s *Service) Name() string { return name }

// Registry exposes the tool registry so hosts can register additional tools.
func (s *Service) Registry() *Registry { return s.registry }

// Capabilities derives the capability list from the registered method
// signatures, ordered by name.
func (s *Service) Capabilities(_ context.Context) ([]executor.Capability, error) {
	var capabilities []executor.Capability
	for _, service := range s.registry.Services() {
		for _, signature := range service.Methods() {
			capabilities = append(capabilities, executor.Capability{
				Name:        service.Name() + "." + signature.Name,
				Description: signature.Description,
			})
		}
	}
	sort.Slice(capabilities, func(i, j int) bool { return capabilities[i].Name < capabilities[j].Name })
	return capabilities, nil
}

// Execute dispatches one approved action to the matching tool.  The action
// may be fully qualified ("calendar.createEvent") or a bare method name, in
// which case all registered services are searched.
func (s *Service) Execute(ctx context.Context, action string, args map[string]interface{}) (*outcome.ToolResult, error) {
	result := &outcome.ToolResult{Action: action, Status: outcome.StatusInProgress}
	raw, err := s.invoke(ctx, action, args)
	if err != nil {
		result.Status = outcome.StatusFailed
		result.Error = err.Error()
		return result, err
	}
	result.Raw = raw
	return result, nil
}

// ListEvents dispatches to a registered listEvents tool.
func (s *Service) ListEvents(ctx context.Context, windowStart, windowEnd string) (interface{}, error) {
	return s.invoke(ctx, "listEvents", map[string]interface{}{"start": windowStart, "end": windowEnd})
}

// GetEvent dispatches to a registered getEvent tool.
func (s *Service) GetEvent(ctx context.Context, id string) (interface{}, error) {
	return s.invoke(ctx, "getEvent", map[string]interface{}{"id": id})
}

// ListResources dispatches to a registered listResources tool.
func (s *Service) ListResources(ctx context.Context) (interface{}, error) {
	return s.invoke(ctx, "listResources", nil)
}

func (s *Service) invoke(ctx context.Context, action string, args map[string]interface{}) (interface{}, error) {
	service, methodName, err := s.resolve(action)
	if err != nil {
		return nil, err
	}
	method, err := service.Method(methodName)
	if err != nil {
		return nil, fmt.Errorf("failed to find method %v for service %v: %w", methodName, service.Name(), err)
	}
	signature := service.Methods().Lookup(methodName)
	if signature == nil {
		return nil, types.NewMethodNotFoundError(methodName)
	}

	input := newInstance(signature.Input)
	if len(args) > 0 {
		if err = s.converter.Convert(args, input); err != nil {
			return nil, fmt.Errorf("failed to convert input for %s: %w", action, err)
		}
	}
	output := newInstance(signature.Output)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err = method(callCtx, input, output); err != nil {
		return nil, err
	}
	return output, nil
}

// resolve maps an action name onto a registered service and method.
func (s *Service) resolve(action string) (types.Service, string, error) {
	if idx := strings.LastIndex(action, "."); idx > 0 {
		serviceName := action[:idx]
		methodName := action[idx+1:]
		if service := s.registry.Lookup(serviceName); service != nil {
			return service, methodName, nil
		}
		return nil, "", fmt.Errorf("service %v not found", serviceName)
	}
	for _, service := range s.registry.Services() {
		if service.Methods().Lookup(action) != nil {
			return service, action, nil
		}
	}
	return nil, "", fmt.Errorf("no tool provides action %q", action)
}

func newInstance(aType reflect.Type) interface{} {
	if aType == nil {
		return &map[string]interface{}{}
	}
	if aType.Kind() == reflect.Ptr {
		return reflect.New(aType.Elem()).Interface()
	}
	return reflect.New(aType).Interface()
}

var _ executor.Service = (*Service)(nil)
