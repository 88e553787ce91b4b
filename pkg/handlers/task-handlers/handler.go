/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package task_handlers binds the queue operations to their HTTP actions.
package task_handlers

import (
	"github.com/Nomoos/prismq-taskqueue/pkg/database/client"
	"github.com/Nomoos/prismq-taskqueue/pkg/engine"
	"github.com/Nomoos/prismq-taskqueue/pkg/registry"
	"github.com/Nomoos/prismq-taskqueue/pkg/router"
)

type Handler struct {
	dbClient *client.Client
	engine   *engine.Engine
	registry *registry.Registry

	limitTpl  *router.Template
	offsetTpl *router.Template
}

// NewHandler wires the handler onto the engine and its registry.
func NewHandler(dbClient *client.Client, eng *engine.Engine) *Handler {
	return &Handler{
		dbClient:  dbClient,
		engine:    eng,
		registry:  eng.Registry(),
		limitTpl:  router.MustParseTemplate("{{query.limit:50}}"),
		offsetTpl: router.MustParseTemplate("{{query.offset:0}}"),
	}
}

// Actions is the registry the data-driven router resolves endpoint rows
// against. Every action name used in api_endpoints must appear here.
func (h *Handler) Actions() map[string]router.Action {
	return map[string]router.Action{
		"task_type.register": {Kind: router.ActionInsert, Handle: h.registerTaskType},
		"task_type.get":      {Kind: router.ActionQuery, Handle: h.getTaskType},
		"task_type.list":     {Kind: router.ActionQuery, Handle: h.listTaskTypes},
		"task.submit":        {Kind: router.ActionInsert, Handle: h.submitTask},
		"task.claim":         {Kind: router.ActionUpdate, Handle: h.claimTask},
		"task.progress":      {Kind: router.ActionUpdate, Handle: h.updateTaskProgress},
		"task.complete":      {Kind: router.ActionUpdate, Handle: h.completeTask},
		"task.get":           {Kind: router.ActionQuery, Handle: h.getTask},
		"task.list":          {Kind: router.ActionQuery, Handle: h.listTasks},
		"task.history":       {Kind: router.ActionQuery, Handle: h.getTaskHistory},
	}
}
