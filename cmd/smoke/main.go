// smoke is a CLI tool for exercising a running storefront bridge.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	smoke health -server URL
//	smoke list -server URL -email ADDR
//	smoke import -server URL -email ADDR -file list.csv
//	smoke validate -server URL -email ADDR -lines lines.json
//	smoke cart -server URL -email ADDR -product SLUG -lines lines.json
//
// Examples:
//
//	smoke health -server http://localhost:8080
//	smoke list -server http://localhost:8080 -email jean@acme.example
//	smoke import -server http://localhost:8080 -email jean@acme.example -file clients.xlsx
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

var client = &http.Client{Timeout: 120 * time.Second}

// ANSI color codes
var (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBold  = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		colorReset, colorRed, colorGreen, colorBold = "", "", "", ""
	}
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "health":
		runHealth(args)
	case "list":
		runList(args)
	case "import":
		runImport(args)
	case "validate":
		runValidate(args)
	case "cart":
		runCart(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `smoke - storefront bridge test tool

Usage:
  smoke <command> [options]

Commands:
  health    Check service health
  list      List a customer's addresses
  import    Import a CSV/XLSX address file
  validate  Resolve a distribution list to address identifiers
  cart      Insert distribution lines into the customer's cart

Run 'smoke <command> -h' for command-specific options.
`)
}

func runHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "bridge base URL")
	fs.Parse(args)

	get(*server + "/health")
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "bridge base URL")
	email := fs.String("email", "", "customer email (required)")
	fs.Parse(args)
	requireEmail(*email)

	get(*server + "/customers/" + url.PathEscape(*email) + "/addresses")
}

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "bridge base URL")
	email := fs.String("email", "", "customer email (required)")
	file := fs.String("file", "", "CSV or XLSX file to import (required)")
	fs.Parse(args)
	requireEmail(*email)
	if *file == "" {
		fail("-file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fail("reading file: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(*file))
	if err != nil {
		fail("building upload: %v", err)
	}
	part.Write(data)
	mw.Close()

	endpoint := *server + "/customers/" + url.PathEscape(*email) + "/addresses/import-file"
	req, err := http.NewRequest(http.MethodPost, endpoint, &body)
	if err != nil {
		fail("building request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	do(req)
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "bridge base URL")
	email := fs.String("email", "", "customer email (required)")
	lines := fs.String("lines", "", "JSON file with distribution lines (required)")
	fs.Parse(args)
	requireEmail(*email)

	body := linesBody(*lines)
	postJSON(*server+"/customers/"+url.PathEscape(*email)+"/distribution/validate", body)
}

func runCart(args []string) {
	fs := flag.NewFlagSet("cart", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "bridge base URL")
	email := fs.String("email", "", "customer email (required)")
	product := fs.String("product", "", "product URL slug (required)")
	lines := fs.String("lines", "", "JSON file with addressId+quantity lines (required)")
	carrier := fs.String("carrier", "", "shipping method")
	fs.Parse(args)
	requireEmail(*email)
	if *product == "" {
		fail("-product is required")
	}

	raw := linesBody(*lines)
	payload := map[string]any{
		"productSlug": *product,
		"lines":       raw["lines"],
	}
	if *carrier != "" {
		payload["shippingMethod"] = *carrier
	}
	postJSON(*server+"/customers/"+url.PathEscape(*email)+"/cart/items", payload)
}

// linesBody reads a JSON file holding either a bare array of lines or an
// object with a "lines" key, and normalizes to the latter.
func linesBody(path string) map[string]any {
	if path == "" {
		fail("-lines is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fail("reading lines file: %v", err)
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil {
		return map[string]any{"lines": arr}
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		fail("lines file is not valid JSON: %v", err)
	}
	return obj
}

func requireEmail(email string) {
	if email == "" {
		fail("-email is required")
	}
}

func get(endpoint string) {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		fail("building request: %v", err)
	}
	do(req)
}

func postJSON(endpoint string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		fail("marshaling payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		fail("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	do(req)
}

// do executes the request, pretty-prints the JSON response, and exits
// non-zero on transport failure or an error status.
func do(req *http.Request) {
	resp, err := client.Do(req)
	if err != nil {
		fail("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fail("reading response: %v", err)
	}

	status := colorGreen
	if resp.StatusCode >= 400 {
		status = colorRed
	}
	fmt.Fprintf(os.Stderr, "%s%s%d %s%s\n", colorBold, status, resp.StatusCode, req.URL.Path, colorReset)

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		os.Stdout.Write(body)
	} else {
		pretty.WriteTo(os.Stdout)
	}
	fmt.Println()

	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"error: "+format+colorReset+"\n", args...)
	os.Exit(1)
}
