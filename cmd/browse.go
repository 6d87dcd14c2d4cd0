// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/events"
)

// The methods below send one request each and render its response.
// Commands and the interactive shell share them.

func (a *app) listDatabases(ctx context.Context) ([]string, error) {
	resp, err := a.call(ctx, events.NewLoadDatabaseNamesRequest(a.session.Token(), a.shell.ID), "listing databases", nil)
	if err != nil {
		return nil, err
	}
	names, _ := resp.(events.LoadDatabaseNamesResponse).Value()
	a.out.Databases(a.server.Name, names)
	return names, nil
}

func (a *app) listCollections(ctx context.Context, database string) ([]string, error) {
	resp, err := a.call(ctx, events.NewLoadCollectionNamesRequest(a.session.Token(), a.shell.ID, database), "listing collections", nil)
	if err != nil {
		return nil, err
	}
	v, _ := resp.(events.LoadCollectionNamesResponse).Value()
	a.out.Collections(v.Database, v.Names)
	return v.Names, nil
}

func (a *app) query(ctx context.Context, namespace string, page events.Page) ([]backend.Document, error) {
	req := events.NewExecuteQueryRequest(a.session.Token(), a.shell.ID, namespace, page.Take, page.Skip)
	resp, err := a.call(ctx, req, "querying "+namespace, nil)
	if err != nil {
		return nil, err
	}
	r := resp.(events.ExecuteQueryResponse)
	docs, _ := r.Value()
	a.out.Documents(r.Namespace, r.Page, docs)
	return docs, nil
}

func (a *app) runScript(ctx context.Context, script, database string, page events.Page) ([]backend.Result, error) {
	req := events.NewExecuteScriptRequest(a.session.Token(), a.shell.ID, script, database, page.Take, page.Skip)
	resp, err := a.call(ctx, req, "running script", nil)
	if err != nil {
		return nil, err
	}
	results, _ := resp.(events.ExecuteScriptResponse).Value()
	a.out.Results(results)
	return results, nil
}
