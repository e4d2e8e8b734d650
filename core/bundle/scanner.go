// Package bundle inspects infrastructure bundles on disk: which variant
// directories exist and what each one declares.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"

	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
)

// Definition summarizes the HCL declared in one variant directory
type Definition struct {
	Dir       string   `json:"dir"`
	Files     []string `json:"files"`
	Resources []string `json:"resources"`
	Outputs   []string `json:"outputs"`
}

// Scanner reads .tf files with the HCL parser
type Scanner struct {
	mu     sync.Mutex
	parser *hclparse.Parser
}

// NewScanner creates a new HCL scanner
func NewScanner() *Scanner {
	return &Scanner{
		parser: hclparse.NewParser(),
	}
}

var schema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "resource", LabelNames: []string{"type", "name"}},
		{Type: "data", LabelNames: []string{"type", "name"}},
		{Type: "module", LabelNames: []string{"name"}},
		{Type: "output", LabelNames: []string{"name"}},
		{Type: "variable", LabelNames: []string{"name"}},
		{Type: "locals"},
		{Type: "provider", LabelNames: []string{"name"}},
		{Type: "terraform"},
	},
}

// Discover lists the immediate sub-directories of root that hold .tf files, sorted
func (s *Scanner) Discover(root string) ([]types.VariantName, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("bundle", root)
		}
		return nil, errors.Wrapf(errors.TypeInput, err, "failed to read bundle %s", root)
	}

	var variants []types.VariantName
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files, err := tfFiles(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			variants = append(variants, types.VariantName(e.Name()))
		}
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i] < variants[j] })
	return variants, nil
}

// Validate checks that every named variant has a directory with .tf files under root
func (s *Scanner) Validate(root string, variants []types.VariantName) error {
	b := types.NewBundle(root)
	if info, err := os.Stat(b.Root); err != nil || !info.IsDir() {
		return errors.NotFound("bundle", b.Root)
	}
	for _, v := range variants {
		dir := b.VariantDir(v)
		files, err := tfFiles(dir)
		if err != nil {
			if errors.IsType(err, errors.TypeNotFound) {
				return errors.NotFound("variant directory", dir).WithContext("variant", v.String())
			}
			return err
		}
		if len(files) == 0 {
			return errors.Newf(errors.TypeNotFound, "variant %s has no .tf files in %s", v, dir).
				WithContext("variant", v.String())
		}
	}
	return nil
}

// DeclaredOutputs returns the output block names declared in dir, sorted
func (s *Scanner) DeclaredOutputs(dir string) ([]string, error) {
	def, err := s.Inspect(dir)
	if err != nil {
		return nil, err
	}
	return def.Outputs, nil
}

// Inspect parses every .tf file in dir (not recursive)
func (s *Scanner) Inspect(dir string) (*Definition, error) {
	files, err := tfFiles(dir)
	if err != nil {
		return nil, err
	}

	def := &Definition{
		Dir:       dir,
		Files:     make([]string, 0, len(files)),
		Resources: []string{},
		Outputs:   []string{},
	}

	for _, file := range files {
		content, err := s.parseFile(file)
		if err != nil {
			return nil, err
		}
		def.Files = append(def.Files, filepath.Base(file))

		for _, block := range content.Blocks {
			switch block.Type {
			case "resource":
				def.Resources = append(def.Resources, fmt.Sprintf("%s.%s", block.Labels[0], block.Labels[1]))
			case "data":
				def.Resources = append(def.Resources, fmt.Sprintf("data.%s.%s", block.Labels[0], block.Labels[1]))
			case "output":
				def.Outputs = append(def.Outputs, block.Labels[0])
			}
		}
	}

	sort.Strings(def.Resources)
	sort.Strings(def.Outputs)
	return def, nil
}

func (s *Scanner) parseFile(file string) (*hcl.BodyContent, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeInput, err, "failed to read %s", file)
	}

	// hclparse.Parser caches files and is not safe for concurrent use
	s.mu.Lock()
	hclFile, diags := s.parser.ParseHCL(src, file)
	s.mu.Unlock()
	if diags.HasErrors() {
		return nil, diagError(file, diags)
	}

	content, _, diags := hclFile.Body.PartialContent(schema)
	if diags.HasErrors() {
		return nil, diagError(file, diags)
	}
	return content, nil
}

func diagError(file string, diags hcl.Diagnostics) error {
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		line := 0
		if diag.Subject != nil {
			line = diag.Subject.Start.Line
		}
		return errors.Newf(errors.TypeInput, "%s: %s", diag.Summary, diag.Detail).
			WithContext("file", file).
			WithContext("line", line)
	}
	return errors.Newf(errors.TypeInput, "failed to parse %s", file)
}

func tfFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("directory", dir)
		}
		return nil, errors.Wrapf(errors.TypeInput, err, "failed to read %s", dir)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".tf") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
