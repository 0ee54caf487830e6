// Command tenant_guard checks that every sqlc query reading or changing
// tenant data filters on tenant_id, unless the query is listed as scoped in
// code (the service loads the row and compares its tenant before use).
//
// Exit code 0 = ok, 1 = violation, 2 = other error.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// scopedInCode lists queries whose tenant check happens in Go.
var scopedInCode = map[string]string{
	"GetOrder":                 "order.LoadForTenant compares tenant_id",
	"GetOrderByGatewayOrderID": "gateway webhook; tenant taken from the order",
	"UpdateOrderAggregates":    "row loaded through LoadForTenant in the same tx",
	"TransitionOrderStatus":    "row loaded through LoadForTenant in the same tx",
	"SetOrderGatewayOrderID":   "row loaded through LoadForTenant",
	"AcceptPaidOrder":          "order resolved by the payment coordinator",
	"GetLocation":              "location of an already scoped order",
	"ListOrderItems":           "keyed by a scoped order id",
	"GetOrderItem":             "keyed by a scoped order id",
	"UpdateOrderItemQty":       "keyed by a scoped order id",
	"DeleteOrderItem":          "keyed by a scoped order id",
	"IncrementCouponUsage":     "coupon looked up by tenant and code",
	"GetInvoiceByOrderID":      "keyed by a scoped order id",
	"GetPaymentEventByGatewayPaymentIDForUpdate": "gateway payment ids are global",
	"MarkPaymentEventApplied":                    "event row locked by the coordinator",
}

var (
	reName   = regexp.MustCompile(`^--\s*name:\s*(\w+)`)
	reStmt   = regexp.MustCompile(`(?i)^\s*(select|update|delete)\b`)
	reTenant = regexp.MustCompile(`(?i)tenant_id\s*=\s*(\$\d+|sqlc\.n?arg\(\w+\))`)
)

type query struct {
	file    string
	name    string
	checks  bool
	tenants bool
}

func main() {
	root := flag.String("dir", "db/queries", "directory holding sqlc query files")
	flag.Parse()

	violations, err := scan(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tenant_guard error: %v\n", err)
		os.Exit(2)
	}
	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "VIOLATION: %s\n", v)
		}
		os.Exit(1)
	}
	fmt.Println("tenant_guard: OK")
}

func scan(dir string) ([]string, error) {
	var violations []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		queries, err := parse(path, f)
		if err != nil {
			return err
		}
		for _, q := range queries {
			if q.checks && !q.tenants {
				if _, ok := scopedInCode[q.name]; !ok {
					violations = append(violations, q.file+": "+q.name)
				}
			}
		}
		return nil
	})
	sort.Strings(violations)
	return violations, err
}

// parse splits a query file on sqlc "-- name:" markers.
func parse(file string, r io.Reader) ([]query, error) {
	var out []query
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if m := reName.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			out = append(out, query{file: file, name: m[1]})
			continue
		}
		if len(out) == 0 {
			continue
		}
		cur := &out[len(out)-1]
		if reStmt.MatchString(line) {
			cur.checks = true
		}
		if reTenant.MatchString(line) {
			cur.tenants = true
		}
	}
	return out, s.Err()
}
