package service_test

import (
	"context"
	"fmt"
	"sync"

	"hdbsearch/internal/mock"
	"hdbsearch/internal/model"
)

// toolCall records a single invocation seen by fakeTools
type toolCall struct {
	Name string
	Args map[string]any
}

// fakeTools dispatches invocations to per-tool handlers and records calls.
type fakeTools struct {
	mu       sync.Mutex
	calls    []toolCall
	handlers map[string]func(args map[string]any) (any, error)
}

func newFakeTools() *fakeTools {
	return &fakeTools{handlers: map[string]func(map[string]any) (any, error){}}
}

func (f *fakeTools) on(name string, h func(args map[string]any) (any, error)) *fakeTools {
	f.handlers[name] = h
	return f
}

func (f *fakeTools) invoker() *mock.ToolInvoker {
	return &mock.ToolInvoker{
		InvokeFn: func(_ context.Context, name string, args map[string]any) (any, error) {
			f.mu.Lock()
			f.calls = append(f.calls, toolCall{Name: name, Args: args})
			h, ok := f.handlers[name]
			f.mu.Unlock()
			if !ok {
				return nil, fmt.Errorf("%s: tool not found", name)
			}
			return h(args)
		},
	}
}

func (f *fakeTools) callsTo(name string) []toolCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []toolCall
	for _, c := range f.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTools) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func reply(content string) *mock.Completer {
	return &mock.Completer{
		CompleteFn: func(context.Context, string) (string, error) { return content, nil },
	}
}

func userState(query string) model.QueryState {
	return model.NewQueryState([]model.Message{{Role: model.RoleUser, Content: query}})
}

func flat(block, street string, price float64, lat, lon any) model.Listing {
	l := model.Listing{
		model.FieldBlock:       block,
		model.FieldStreetName:  street,
		model.FieldResalePrice: price,
	}
	if lat != nil {
		l[model.FieldLat] = lat
	}
	if lon != nil {
		l[model.FieldLon] = lon
	}
	return l
}
