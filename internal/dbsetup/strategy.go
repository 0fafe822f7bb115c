package dbsetup

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"zonerun/internal/containerizer"
	"zonerun/internal/execute"
)

// Strategy manages databases and users of one engine. Every operation
// returns the exit code of the client command it ran.
type Strategy interface {
	CreateDatabase(ctx context.Context, name string) (int, error)
	CreateUser(ctx context.Context, username, password string) (int, error)
	GrantPrivileges(ctx context.Context, database, username string) (int, error)
	DropDatabase(ctx context.Context, name string) (int, error)
	DropUser(ctx context.Context, username string) (int, error)
	// ListDatabases streams the database list to the log.
	ListDatabases(ctx context.Context) (int, error)
}

// Options tunes how a strategy reaches its server.
type Options struct {
	Port         int    // Server port, zero for the engine default
	RootPassword string // Administrative password, where the engine needs one
	UserHost     string // Host part of created users, where the engine has one
}

// engine describes the client of one database engine as templates. The
// command template receives .Port, .RootPassword and the rendered .SQL.
type engine struct {
	name        string
	execUser    string
	defaultPort int
	defaultHost string
	command     *template.Template
	statements  map[string]*template.Template
}

const (
	stmtCreateDatabase = "create_database"
	stmtCreateUser     = "create_user"
	stmtGrant          = "grant_privileges"
	stmtDropDatabase   = "drop_database"
	stmtDropUser       = "drop_user"
	stmtList           = "list_databases"
)

func newEngine(name, execUser string, defaultPort int, defaultHost, command string, statements map[string]string) *engine {
	e := &engine{
		name:        name,
		execUser:    execUser,
		defaultPort: defaultPort,
		defaultHost: defaultHost,
		command:     template.Must(template.New(name).Funcs(sprig.TxtFuncMap()).Parse(command)),
		statements:  make(map[string]*template.Template, len(statements)),
	}
	for key, text := range statements {
		e.statements[key] = template.Must(template.New(name + "." + key).Funcs(sprig.TxtFuncMap()).Parse(text))
	}
	return e
}

// sqlStrategy runs an engine's client inside the database container.
type sqlStrategy struct {
	engine    *engine
	runner    execute.Runner
	container containerizer.Container
	opts      Options
}

func (e *engine) factory() Factory {
	return func(runner execute.Runner, c containerizer.Container, opts Options) Strategy {
		if opts.Port == 0 {
			opts.Port = e.defaultPort
		}
		if opts.UserHost == "" {
			opts.UserHost = e.defaultHost
		}
		return &sqlStrategy{engine: e, runner: runner, container: c, opts: opts}
	}
}

// render builds the shell command for one statement.
func (s *sqlStrategy) render(key string, data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	data["Host"] = s.opts.UserHost

	var sql bytes.Buffer
	if err := s.engine.statements[key].Execute(&sql, data); err != nil {
		return "", fmt.Errorf("failed to render %s statement for %s: %w", key, s.engine.name, err)
	}

	var cmd bytes.Buffer
	err := s.engine.command.Execute(&cmd, map[string]any{
		"Port":         s.opts.Port,
		"RootPassword": s.opts.RootPassword,
		"SQL":          sql.String(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render %s command for %s: %w", key, s.engine.name, err)
	}
	return cmd.String(), nil
}

func (s *sqlStrategy) run(ctx context.Context, key string, data map[string]any, stream bool) (int, error) {
	cmd, err := s.render(key, data)
	if err != nil {
		return -1, err
	}
	return s.runner.Execute(ctx, s.container, cmd, execute.Options{User: s.engine.execUser, Stream: stream})
}

func (s *sqlStrategy) CreateDatabase(ctx context.Context, name string) (int, error) {
	return s.run(ctx, stmtCreateDatabase, map[string]any{"Database": name}, false)
}

func (s *sqlStrategy) CreateUser(ctx context.Context, username, password string) (int, error) {
	return s.run(ctx, stmtCreateUser, map[string]any{"User": username, "Password": password}, false)
}

func (s *sqlStrategy) GrantPrivileges(ctx context.Context, database, username string) (int, error) {
	return s.run(ctx, stmtGrant, map[string]any{"Database": database, "User": username}, false)
}

func (s *sqlStrategy) DropDatabase(ctx context.Context, name string) (int, error) {
	return s.run(ctx, stmtDropDatabase, map[string]any{"Database": name}, false)
}

func (s *sqlStrategy) DropUser(ctx context.Context, username string) (int, error) {
	return s.run(ctx, stmtDropUser, map[string]any{"User": username}, false)
}

func (s *sqlStrategy) ListDatabases(ctx context.Context) (int, error) {
	return s.run(ctx, stmtList, nil, true)
}

var postgresEngine = newEngine("postgres", "postgres", 5432, "",
	`psql --port {{ .Port }} --command {{ .SQL | quote }}`,
	map[string]string{
		stmtCreateDatabase: `create database "{{ .Database }}";`,
		stmtCreateUser:     `create user {{ .User }} with password '{{ .Password }}';`,
		stmtGrant:          `grant all privileges on database "{{ .Database }}" to {{ .User }};`,
		stmtDropDatabase:   `drop database "{{ .Database }}";`,
		stmtDropUser:       `drop user {{ .User }};`,
		stmtList:           `\l`,
	})

var mysqlEngine = newEngine("mysql", "", 3306, "%",
	`mysql --port {{ .Port }} --user root --password={{ .RootPassword | quote }} --execute {{ .SQL | quote }}`,
	map[string]string{
		stmtCreateDatabase: `CREATE DATABASE {{ .Database }};`,
		stmtCreateUser:     `CREATE USER '{{ .User }}'@'{{ .Host }}' IDENTIFIED BY '{{ .Password }}';`,
		stmtGrant:          `GRANT ALL ON {{ .Database }}.* TO '{{ .User }}'@'{{ .Host }}';`,
		stmtDropDatabase:   `DROP DATABASE {{ .Database }};`,
		stmtDropUser:       `DROP USER '{{ .User }}'@'{{ .Host }}';`,
		stmtList:           `SHOW DATABASES;`,
	})
