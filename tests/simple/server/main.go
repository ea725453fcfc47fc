package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"

	subgraph "github.com/hanpama/subgraph"
	"github.com/hanpama/subgraph/internal/eventbus"
)

const schemaSDL = `
type Query {
	user(id: ID!): User
	users: [User!]!
	organization(id: ID!): Organization
}

type Mutation {
	createUser(email: String!, name: String!, organizationId: ID): User!
}

type User @key(fields: "id") @key(fields: "email") {
	id: ID!
	email: String!
	name: String!
	organization: Organization
}

type Organization @key(fields: "id") {
	id: ID!
	name: String!
	members: [User!]!
}
`

type store struct {
	mu           sync.RWMutex
	users        map[string]map[string]any
	usersByEmail map[string]map[string]any
	orgs         map[string]map[string]any
	nextID       int
}

func newStore() *store {
	s := &store{
		users:        map[string]map[string]any{},
		usersByEmail: map[string]map[string]any{},
		orgs:         map[string]map[string]any{},
		nextID:       1,
	}
	s.seed()
	return s
}

func (s *store) seed() {
	org := map[string]any{"__typename": "Organization", "id": "org-1", "name": "Tech Corp"}
	s.orgs[org["id"].(string)] = org

	s.addUser(map[string]any{
		"__typename": "User", "id": "user-1",
		"email": "john@example.com", "name": "John Doe", "organizationId": "org-1",
	})
	s.addUser(map[string]any{
		"__typename": "User", "id": "user-2",
		"email": "jane@example.com", "name": "Jane Smith", "organizationId": "org-1",
	})
}

func (s *store) addUser(u map[string]any) {
	s.users[u["id"].(string)] = u
	s.usersByEmail[u["email"].(string)] = u
}

func (s *store) generateID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func buildSubgraph(s *store) (*subgraph.Subgraph, error) {
	return subgraph.New(subgraph.Config{
		SDL: schemaSDL,
		Resolvers: map[string]subgraph.FieldFunc{
			"Query.user": func(ctx context.Context, source any, args map[string]any) (any, error) {
				s.mu.RLock()
				defer s.mu.RUnlock()
				id, _ := args["id"].(string)
				if u, ok := s.users[id]; ok {
					return u, nil
				}
				return nil, nil
			},
			"Query.users": func(ctx context.Context, source any, args map[string]any) (any, error) {
				s.mu.RLock()
				defer s.mu.RUnlock()
				ids := make([]string, 0, len(s.users))
				for id := range s.users {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				out := make([]any, len(ids))
				for i, id := range ids {
					out[i] = s.users[id]
				}
				return out, nil
			},
			"Query.organization": func(ctx context.Context, source any, args map[string]any) (any, error) {
				s.mu.RLock()
				defer s.mu.RUnlock()
				id, _ := args["id"].(string)
				if o, ok := s.orgs[id]; ok {
					return o, nil
				}
				return nil, nil
			},
			"Mutation.createUser": func(ctx context.Context, source any, args map[string]any) (any, error) {
				s.mu.Lock()
				defer s.mu.Unlock()
				email, _ := args["email"].(string)
				if _, exists := s.usersByEmail[email]; exists {
					return nil, fmt.Errorf("user with email %q already exists", email)
				}
				u := map[string]any{
					"__typename": "User",
					"id":         s.generateID("user"),
					"email":      email,
					"name":       args["name"],
				}
				if orgID, ok := args["organizationId"].(string); ok {
					u["organizationId"] = orgID
				}
				s.addUser(u)
				return u, nil
			},
			"User.organization": func(ctx context.Context, source any, args map[string]any) (any, error) {
				s.mu.RLock()
				defer s.mu.RUnlock()
				u := source.(map[string]any)
				orgID, _ := u["organizationId"].(string)
				if o, ok := s.orgs[orgID]; ok {
					return o, nil
				}
				return nil, nil
			},
			"Organization.members": func(ctx context.Context, source any, args map[string]any) (any, error) {
				s.mu.RLock()
				defer s.mu.RUnlock()
				o := source.(map[string]any)
				ids := make([]string, 0, len(s.users))
				for id, u := range s.users {
					if u["organizationId"] == o["id"] {
						ids = append(ids, id)
					}
				}
				sort.Strings(ids)
				out := make([]any, len(ids))
				for i, id := range ids {
					out[i] = s.users[id]
				}
				return out, nil
			},
		},
		ReferenceResolvers: map[string]subgraph.ReferenceResolver{
			"User": func(ctx context.Context, rep map[string]any) (any, error) {
				s.mu.RLock()
				defer s.mu.RUnlock()
				if id, ok := rep["id"].(string); ok {
					if u, found := s.users[id]; found {
						return u, nil
					}
					return nil, subgraph.ErrNotFound
				}
				if email, ok := rep["email"].(string); ok {
					if u, found := s.usersByEmail[email]; found {
						return u, nil
					}
				}
				return nil, subgraph.ErrNotFound
			},
			"Organization": func(ctx context.Context, rep map[string]any) (any, error) {
				s.mu.RLock()
				defer s.mu.RUnlock()
				if o, ok := s.orgs[rep["id"].(string)]; ok {
					return o, nil
				}
				return nil, subgraph.ErrNotFound
			},
		},
	})
}

func main() {
	addr := flag.String("addr", ":8080", "the address to listen on")
	flag.Parse()

	eventbus.Use(eventbus.New())

	sub, err := buildSubgraph(newStore())
	if err != nil {
		log.Fatalf("build subgraph: %v", err)
	}
	h, err := sub.Handler(subgraph.WithPretty())
	if err != nil {
		log.Fatalf("handler: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	log.Printf("subgraph listening on %s", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
