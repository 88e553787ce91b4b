/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package router loads the HTTP surface from the api_endpoints and
// api_validations tables and binds each row to a registered action. Routes
// are data, handlers are code: an endpoint row names an action; the action
// must exist with the declared kind or startup fails.
package router

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/Nomoos/prismq-taskqueue/pkg/database/client"
	"github.com/Nomoos/prismq-taskqueue/pkg/jsonutil"
	"github.com/Nomoos/prismq-taskqueue/pkg/utils"
	"github.com/Nomoos/prismq-taskqueue/pkg/validation"
)

// ActionKind tags what a bound action does. An endpoint row declaring one
// kind cannot bind to an action of another.
type ActionKind string

const (
	ActionQuery  ActionKind = "query"
	ActionInsert ActionKind = "insert"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
	ActionCustom ActionKind = "custom"
)

var knownKinds = map[ActionKind]bool{
	ActionQuery:  true,
	ActionInsert: true,
	ActionUpdate: true,
	ActionDelete: true,
	ActionCustom: true,
}

// HandlerFunc is the shape of one bound action: it returns the success
// payload or an error the envelope layer translates.
type HandlerFunc func(c *gin.Context) (interface{}, error)

// Action pairs a handler with its declared kind.
type Action struct {
	Kind   ActionKind
	Handle HandlerFunc
}

// Router binds endpoint rows to registered actions.
type Router struct {
	actions map[string]Action
	db      *client.Client
}

// NewRouter creates a router over the given action registry.
func NewRouter(db *client.Client, actions map[string]Action) *Router {
	return &Router{db: db, actions: actions}
}

// Install loads the active endpoints and their validation rules and
// registers them on the gin engine. Unknown actions, kind mismatches and
// malformed rules fail startup rather than producing half a surface.
func (r *Router) Install(ctx context.Context, e *gin.Engine) error {
	endpoints, err := r.db.SelectApiEndpoints(ctx)
	if err != nil {
		return err
	}
	validations, err := r.db.SelectApiValidations(ctx)
	if err != nil {
		return err
	}
	rules, err := validation.CompileRules(validations)
	if err != nil {
		return err
	}

	for _, endpoint := range endpoints {
		kind := ActionKind(endpoint.ActionKind)
		if !knownKinds[kind] {
			return fmt.Errorf("endpoint %s %s: unknown action kind %q",
				endpoint.Method, endpoint.Path, endpoint.ActionKind)
		}
		action, ok := r.actions[endpoint.ActionName]
		if !ok {
			return fmt.Errorf("endpoint %s %s: unknown action %q",
				endpoint.Method, endpoint.Path, endpoint.ActionName)
		}
		if action.Kind != kind {
			return fmt.Errorf("endpoint %s %s: action %q is %s, not %s",
				endpoint.Method, endpoint.Path, endpoint.ActionName, action.Kind, kind)
		}
		e.Handle(strings.ToUpper(endpoint.Method), endpoint.Path,
			r.dispatch(action, rules[endpoint.Id]))
		klog.Infof("route %s %s -> %s", endpoint.Method, endpoint.Path, endpoint.ActionName)
	}
	return nil
}

// dispatch wraps one action: request validation first, then the handler,
// then the envelope.
func (r *Router) dispatch(action Action, rules []*validation.ParamRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(rules) > 0 {
			values, err := newRequestValues(c, rules)
			if err != nil {
				utils.AbortWithApiError(c, err)
				return
			}
			if err = validation.Validate(rules, values); err != nil {
				utils.AbortWithApiError(c, err)
				return
			}
		}
		data, err := action.Handle(c)
		if err != nil {
			utils.AbortWithApiError(c, err)
			return
		}
		code := http.StatusOK
		if c.Writer.Status() > 0 && c.Writer.Status() != http.StatusOK {
			code = c.Writer.Status()
		}
		utils.Respond(c, code, data)
	}
}

// requestValues resolves rule lookups against one request. The body is read
// at most once and restored so the handler can decode it again.
type requestValues struct {
	c    *gin.Context
	body map[string]interface{}
}

func newRequestValues(c *gin.Context, rules []*validation.ParamRule) (*requestValues, error) {
	values := &requestValues{c: c}
	for _, rule := range rules {
		if rule.Source != validation.SourceBody {
			continue
		}
		data, err := utils.ReadBody(c)
		if err != nil {
			return nil, err
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(data))
		if len(data) > 0 {
			decoded, err := jsonutil.UnmarshalValue(data)
			if err == nil {
				values.body, _ = decoded.(map[string]interface{})
			}
		}
		break
	}
	return values, nil
}

// Get implements validation.ValueGetter.
func (v *requestValues) Get(source, name string) (interface{}, bool) {
	switch source {
	case validation.SourcePath:
		value := v.c.Param(name)
		return value, value != ""
	case validation.SourceQuery:
		value, ok := v.c.GetQuery(name)
		return value, ok
	case validation.SourceHeader:
		value := v.c.GetHeader(name)
		return value, value != ""
	case validation.SourceBody:
		if v.body == nil {
			return nil, false
		}
		value, ok := v.body[name]
		return value, ok
	}
	return nil, false
}
