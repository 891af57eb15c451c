//go:build integration
// +build integration

package integration

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestPalletWritesAreBlockDriven fails when code outside the runtime
// dispatch path (or genesis seeding) mutates pallet state directly.
// Every other package must submit blocks instead.
func TestPalletWritesAreBlockDriven(t *testing.T) {
	config := &packages.Config{
		Mode:  packages.NeedName | packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedDeps,
		Tests: false,
		Dir:   integrationRepoRoot(t),
	}
	pkgs, err := packages.Load(config, palletWriteGuardrailPatterns()...)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		t.Fatalf("package load errors")
	}

	palletTypes := lookupPalletTypes(t, pkgs)

	forbiddenMethods := map[string]struct{}{
		"IncBlockNumber": {},
		"IncNonce":       {},
		"SetBalance":     {},
		"Transfer":       {},
		"CreateClaim":    {},
		"RevokeClaim":    {},
	}

	var violations []string
	for _, pkg := range pkgs {
		if isPalletWriteGuardrailIgnoredPackage(pkg.PkgPath) {
			continue
		}
		for _, file := range pkg.Syntax {
			ast.Inspect(file, func(node ast.Node) bool {
				call, ok := node.(*ast.CallExpr)
				if !ok {
					return true
				}
				sel, ok := call.Fun.(*ast.SelectorExpr)
				if !ok {
					return true
				}
				if _, ok := forbiddenMethods[sel.Sel.Name]; !ok {
					return true
				}
				receiverType := pkg.TypesInfo.TypeOf(sel.X)
				if receiverType == nil {
					return true
				}
				if !receiverIsPallet(receiverType, palletTypes) {
					return true
				}
				position := pkg.Fset.Position(sel.Pos())
				violations = append(violations, formatPalletWriteViolation(pkg.PkgPath, file, sel, position.String()))
				return true
			})
		}
	}

	if len(violations) > 0 {
		formatted := make([]string, 0, len(violations))
		for _, violation := range violations {
			formatted = append(formatted, "- "+filepath.ToSlash(violation))
		}
		t.Fatalf("direct pallet writes must go through block execution:\n%s", strings.Join(formatted, "\n"))
	}
}

func formatPalletWriteViolation(pkgPath string, file *ast.File, sel *ast.SelectorExpr, position string) string {
	if sel == nil || sel.Sel == nil {
		return fmt.Sprintf("%s: direct pallet write", position)
	}
	location := strings.TrimSpace(position)
	if location == "" {
		location = "<unknown>"
	}
	pkgPath = filepath.ToSlash(strings.TrimSpace(pkgPath))
	if pkgPath == "" {
		pkgPath = "<unknown-package>"
	}
	funcName := enclosingFunctionName(file, sel.Pos())
	if strings.TrimSpace(funcName) == "" {
		funcName = "<unknown-function>"
	}
	return fmt.Sprintf("%s: %s %s calls %s", location, pkgPath, funcName, sel.Sel.Name)
}

func enclosingFunctionName(file *ast.File, pos token.Pos) string {
	if file == nil {
		return ""
	}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Name == nil {
			continue
		}
		if pos < fn.Pos() || pos > fn.End() {
			continue
		}
		if fn.Recv == nil || len(fn.Recv.List) == 0 {
			return fn.Name.Name
		}
		recvName := receiverTypeName(fn.Recv.List[0].Type)
		if recvName == "" {
			return fn.Name.Name
		}
		return recvName + "." + fn.Name.Name
	}
	return ""
}

func receiverTypeName(expr ast.Expr) string {
	switch typed := expr.(type) {
	case *ast.Ident:
		return typed.Name
	case *ast.StarExpr:
		return receiverTypeName(typed.X)
	case *ast.IndexExpr:
		return receiverTypeName(typed.X)
	case *ast.IndexListExpr:
		return receiverTypeName(typed.X)
	case *ast.SelectorExpr:
		if typed.Sel != nil {
			return typed.Sel.Name
		}
		return ""
	default:
		return ""
	}
}

// lookupPalletTypes resolves the Pallet named type from each pallet
// package inside one load, so type identity holds during matching.
func lookupPalletTypes(t *testing.T, pkgs []*packages.Package) []types.Type {
	t.Helper()

	palletPackages := map[string]bool{
		"/internal/services/chain/domain/system":   false,
		"/internal/services/chain/domain/balances": false,
		"/internal/services/chain/domain/poe":      false,
	}

	var palletTypes []types.Type
	for _, pkg := range pkgs {
		path := filepath.ToSlash(pkg.PkgPath)
		for suffix, seen := range palletPackages {
			if seen || !strings.HasSuffix(path, suffix) {
				continue
			}
			obj := pkg.Types.Scope().Lookup("Pallet")
			if obj == nil {
				t.Fatalf("pallet type not found in %s", pkg.PkgPath)
			}
			palletTypes = append(palletTypes, obj.Type())
			palletPackages[suffix] = true
		}
	}
	for suffix, seen := range palletPackages {
		if !seen {
			t.Fatalf("pallet package %s not loaded", suffix)
		}
	}
	return palletTypes
}

func receiverIsPallet(typ types.Type, palletTypes []types.Type) bool {
	if typ == nil {
		return false
	}
	if pointer, ok := typ.(*types.Pointer); ok {
		typ = pointer.Elem()
	}
	for _, pallet := range palletTypes {
		if types.Identical(typ, pallet) {
			return true
		}
	}
	return false
}

func integrationRepoRoot(t *testing.T) string {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("get working dir: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return wd
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			t.Fatal("go.mod not found")
		}
		wd = parent
	}
}

func TestPalletWriteGuardrailScopes(t *testing.T) {
	patterns := palletWriteGuardrailPatterns()
	if len(patterns) == 0 {
		t.Fatal("expected at least one package pattern")
	}
	found := false
	for _, pattern := range patterns {
		if pattern == "./internal/..." {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected scan scope to include ./internal/..., got %v", patterns)
	}
}

func TestPalletWriteGuardrailIgnoresAuthorizedPackages(t *testing.T) {
	if !isPalletWriteGuardrailIgnoredPackage("github.com/louisbranch/cairn/internal/services/chain/domain/runtime") {
		t.Fatal("expected runtime package to be ignored")
	}
	if !isPalletWriteGuardrailIgnoredPackage("github.com/louisbranch/cairn/internal/services/chain/app") {
		t.Fatal("expected app package to be ignored")
	}
	if !isPalletWriteGuardrailIgnoredPackage("github.com/louisbranch/cairn/internal/tools/scenario") {
		t.Fatal("expected scenario package to be ignored")
	}
	if isPalletWriteGuardrailIgnoredPackage("github.com/louisbranch/cairn/internal/services/chain/server") {
		t.Fatal("expected server package to be scanned")
	}
}

func palletWriteGuardrailPatterns() []string {
	return []string{
		"./internal/...",
	}
}

func isPalletWriteGuardrailIgnoredPackage(pkgPath string) bool {
	path := filepath.ToSlash(strings.TrimSpace(pkgPath))
	if path == "" {
		return false
	}
	return strings.Contains(path, "/internal/services/chain/domain") ||
		strings.Contains(path, "/internal/services/chain/app") ||
		strings.Contains(path, "/internal/tools/scenario")
}
