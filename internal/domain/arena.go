// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package domain

import (
	"sort"
	"sync"
)

// Arena owns every domain record. It is safe for concurrent use; callers get
// copies, so nothing they hold can change underneath them.
type Arena struct {
	mu sync.RWMutex

	servers     map[ServerID]Server
	shells      map[ShellID]Shell
	databases   map[DatabaseID]Database
	collections map[CollectionID]Collection
	documents   map[DocumentID]Document

	// insertion order of children, keyed by parent
	dbOrder  map[ServerID][]DatabaseID
	colOrder map[DatabaseID][]CollectionID
	docOrder map[ShellID][]DocumentID
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		servers:     make(map[ServerID]Server),
		shells:      make(map[ShellID]Shell),
		databases:   make(map[DatabaseID]Database),
		collections: make(map[CollectionID]Collection),
		documents:   make(map[DocumentID]Document),
		dbOrder:     make(map[ServerID][]DatabaseID),
		colOrder:    make(map[DatabaseID][]CollectionID),
		docOrder:    make(map[ShellID][]DocumentID),
	}
}

// AddServer registers a server under a fresh id.
func (a *Arena) AddServer(name, uri string) Server {
	s := Server{ID: ServerID(newID()), Name: name, URI: uri}
	a.mu.Lock()
	a.servers[s.ID] = s
	a.mu.Unlock()
	return s
}

func (a *Arena) Server(id ServerID) (Server, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.servers[id]
	return s, ok
}

// Servers returns all servers ordered by name.
func (a *Arena) Servers() []Server {
	a.mu.RLock()
	out := make([]Server, 0, len(a.servers))
	for _, s := range a.servers {
		out = append(out, s)
	}
	a.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RemoveServer drops a server together with its shells, databases, collections and documents.
func (a *Arena) RemoveServer(id ServerID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.servers, id)
	for sid, sh := range a.shells {
		if sh.Server == id {
			a.removeShellLocked(sid)
		}
	}
	for _, dbID := range a.dbOrder[id] {
		a.removeDatabaseLocked(dbID)
	}
	delete(a.dbOrder, id)
}

// AddShell opens a shell record on an existing server.
func (a *Arena) AddShell(server ServerID, database, initialScript string) (Shell, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.servers[server]; !ok {
		return Shell{}, ErrUnknownServer
	}
	sh := Shell{ID: ShellID(newID()), Server: server, Database: database, InitialScript: initialScript}
	a.shells[sh.ID] = sh
	return sh, nil
}

func (a *Arena) Shell(id ShellID) (Shell, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	sh, ok := a.shells[id]
	return sh, ok
}

// Shells returns the shells open on server, in no particular order.
func (a *Arena) Shells(server ServerID) []Shell {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []Shell
	for _, sh := range a.shells {
		if sh.Server == server {
			out = append(out, sh)
		}
	}
	return out
}

// RemoveShell drops a shell and the documents it loaded.
func (a *Arena) RemoveShell(id ShellID) {
	a.mu.Lock()
	a.removeShellLocked(id)
	a.mu.Unlock()
}

func (a *Arena) removeShellLocked(id ShellID) {
	delete(a.shells, id)
	for _, d := range a.docOrder[id] {
		delete(a.documents, d)
	}
	delete(a.docOrder, id)
}

func (a *Arena) removeDatabaseLocked(id DatabaseID) {
	delete(a.databases, id)
	for _, c := range a.colOrder[id] {
		delete(a.collections, c)
	}
	delete(a.colOrder, id)
}

// PutDatabases replaces the known databases of a server with names, keeping
// ids stable for names that were already known.
func (a *Arena) PutDatabases(server ServerID, names []string) []DatabaseID {
	a.mu.Lock()
	defer a.mu.Unlock()

	existing := make(map[string]DatabaseID, len(a.dbOrder[server]))
	for _, id := range a.dbOrder[server] {
		existing[a.databases[id].Name] = id
	}

	ids := make([]DatabaseID, 0, len(names))
	for _, name := range names {
		id, ok := existing[name]
		if ok {
			delete(existing, name)
		} else {
			id = DatabaseID(newID())
			a.databases[id] = Database{ID: id, Server: server, Name: name}
		}
		ids = append(ids, id)
	}
	for _, stale := range existing {
		a.removeDatabaseLocked(stale)
	}
	a.dbOrder[server] = ids
	return ids
}

// Databases returns the databases of a server in the order they were loaded.
func (a *Arena) Databases(server ServerID) []Database {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Database, 0, len(a.dbOrder[server]))
	for _, id := range a.dbOrder[server] {
		out = append(out, a.databases[id])
	}
	return out
}

func (a *Arena) Database(id DatabaseID) (Database, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	db, ok := a.databases[id]
	return db, ok
}

// PutCollections replaces the collections of the named database on a server.
// The database record is created when it was not loaded before.
func (a *Arena) PutCollections(server ServerID, database string, names []string) (DatabaseID, []CollectionID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var dbID DatabaseID
	for _, id := range a.dbOrder[server] {
		if a.databases[id].Name == database {
			dbID = id
			break
		}
	}
	if dbID == "" {
		dbID = DatabaseID(newID())
		a.databases[dbID] = Database{ID: dbID, Server: server, Name: database}
		a.dbOrder[server] = append(a.dbOrder[server], dbID)
	}

	for _, c := range a.colOrder[dbID] {
		delete(a.collections, c)
	}
	ids := make([]CollectionID, 0, len(names))
	for _, name := range names {
		id := CollectionID(newID())
		a.collections[id] = Collection{ID: id, Database: dbID, Name: name}
		ids = append(ids, id)
	}
	a.colOrder[dbID] = ids
	return dbID, ids
}

// Collections returns the collections of a database in load order.
func (a *Arena) Collections(db DatabaseID) []Collection {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Collection, 0, len(a.colOrder[db]))
	for _, id := range a.colOrder[db] {
		out = append(out, a.collections[id])
	}
	return out
}

// PutDocuments replaces the document page shown by a shell.
func (a *Arena) PutDocuments(shell ShellID, namespace string, raws [][]byte) []DocumentID {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, d := range a.docOrder[shell] {
		delete(a.documents, d)
	}
	ids := make([]DocumentID, 0, len(raws))
	for _, raw := range raws {
		id := DocumentID(newID())
		a.documents[id] = Document{ID: id, Shell: shell, Namespace: namespace, Raw: append([]byte(nil), raw...)}
		ids = append(ids, id)
	}
	a.docOrder[shell] = ids
	return ids
}

// Documents resolves ids, skipping any that were released meanwhile.
func (a *Arena) Documents(ids []DocumentID) []Document {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := a.documents[id]; ok {
			out = append(out, d)
		}
	}
	return out
}
