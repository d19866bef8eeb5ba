// Command rpcschema prints the RPC procedure registry as YAML, or checks a
// previously generated file against it.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mayank-dotcom/career-bot/pkg/rpcclient"
)

type registryDoc struct {
	Version    int                   `yaml:"version"`
	Transport  transportDoc          `yaml:"transport"`
	Procedures []rpcclient.Procedure `yaml:"procedures"`
}

type transportDoc struct {
	Path        string            `yaml:"path"`
	Query       string            `yaml:"query"`
	Mutation    string            `yaml:"mutation"`
	Success     string            `yaml:"success"`
	Failure     string            `yaml:"failure"`
	StatusCodes map[string]int    `yaml:"statusCodes"`
	Upload      map[string]string `yaml:"upload"`
}

func main() {
	switch {
	case len(os.Args) == 1:
		if err := writeRegistry(os.Stdout); err != nil {
			exitErr(err)
		}
	case len(os.Args) == 3 && os.Args[1] == "check":
		if err := checkFile(os.Args[2]); err != nil {
			exitErr(err)
		}
		fmt.Println("RPC schema is up to date.")
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [check <rpc-schema.yaml>]\n", os.Args[0])
		os.Exit(2)
	}
}

func currentRegistry() registryDoc {
	return registryDoc{
		Version: 1,
		Transport: transportDoc{
			Path:     "/rpc/<name>",
			Query:    "GET ?input=<json> or POST <json>",
			Mutation: "POST <json>",
			Success:  `{"result": <output>}`,
			Failure:  `{"error": {"code": <code>, "message": <text>}}`,
			StatusCodes: map[string]int{
				"BAD_REQUEST":           400,
				"UNAUTHORIZED":          401,
				"FORBIDDEN":             403,
				"NOT_FOUND":             404,
				"CONFLICT":              409,
				"TOO_MANY_REQUESTS":     429,
				"INTERNAL_SERVER_ERROR": 500,
				"BAD_GATEWAY":           502,
			},
			Upload: map[string]string{
				"path":    "POST /api/parse-pdf",
				"field":   "file",
				"success": "ParsedDocument",
				"failure": `{"error": <text>}`,
			},
		},
		Procedures: rpcclient.Procedures,
	}
}

func writeRegistry(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(currentRegistry()); err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	return enc.Close()
}

func checkFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var doc registryDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return diffProcedures(doc.Procedures, rpcclient.Procedures)
}

// diffProcedures reports every procedure that was added, removed or changed.
func diffProcedures(have, want []rpcclient.Procedure) error {
	index := make(map[string]rpcclient.Procedure, len(have))
	for _, p := range have {
		index[p.Name] = p
	}
	var problems []string
	for _, p := range want {
		got, ok := index[p.Name]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing procedure %q", p.Name))
			continue
		}
		if got != p {
			problems = append(problems, fmt.Sprintf("procedure %q changed: have %+v, want %+v", p.Name, got, p))
		}
		delete(index, p.Name)
	}
	for name := range index {
		problems = append(problems, fmt.Sprintf("unknown procedure %q", name))
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errors.New(strings.Join(problems, "\n"))
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "rpc schema check failed: %v\n", err)
	os.Exit(1)
}
