// cmd/kindelia runs the interaction-net runtime described by spec.md:
// a small verb dispatcher over run/repl/tick/rollback/query/serve,
// grounded on the teacher's cmd/sentra/main.go alias-table shape.
package main

import (
	"bufio"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"kindelia/internal/chash"
	"kindelia/internal/gateway"
	"kindelia/internal/name"
	"kindelia/internal/query"
	"kindelia/internal/runtime"
	"kindelia/internal/statement"
	"kindelia/internal/syntax"
)

const version = "0.1.0"

// defaultCostLimit bounds the number of interaction-rule firings any
// single statement may perform (spec §5/§7 "Budget exceeded (cost or
// mana): statement failure"). Chosen generously enough that none of
// spec §8's worked examples come close to it.
const defaultCostLimit = 10_000_000

var commandAliases = map[string]string{
	"r": "run",
	"i": "repl",
	"k": "tick",
	"b": "rollback",
	"q": "query",
	"s": "serve",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Println("kindelia", version)
	case "run":
		runCommand(args[1:])
	case "repl":
		replCommand(args[1:])
	case "tick":
		tickCommand(args[1:])
	case "rollback":
		rollbackCommand(args[1:])
	case "query":
		queryCommand(args[1:])
	case "serve":
		serveCommand(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "kindelia: unknown command %q\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("kindelia - a deterministic interaction-net runtime")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  kindelia run <file.kdl>          Load and apply a statement file           (alias: r)")
	fmt.Println("  kindelia repl                    Start an interactive statement REPL        (alias: i)")
	fmt.Println("  kindelia tick <file.kdl>         Apply a file, then advance one tick         (alias: k)")
	fmt.Println("  kindelia rollback <file.kdl> <tick>  Apply a file, then rewind to <tick>     (alias: b)")
	fmt.Println("  kindelia query <dsn> <fid>       Look up a function's indexed disk state    (alias: q)")
	fmt.Println("  kindelia serve <addr>            Serve the §5 external mailbox over websocket (alias: s)")
	fmt.Println()
	fmt.Println("  --index <dsn>  on run/tick/repl/serve mirrors disk writes and ticks into the")
	fmt.Println("                 same SQL-backed indexer 'query' reads from.")
}

func newRuntime() *runtime.Runtime {
	rt := runtime.New()
	rt.SetRestart(chash.NewRestarter(nil).Next)
	rt.SetCostLimit(defaultCostLimit)
	return rt
}

// extractIndexFlag pulls a trailing "--index <dsn>" pair out of args,
// returning the DSN (empty if absent) and the remaining positional
// arguments.
func extractIndexFlag(args []string) (dsn string, rest []string) {
	for i, a := range args {
		if a == "--index" && i+1 < len(args) {
			dsn = args[i+1]
			rest = append(append([]string{}, args[:i]...), args[i+2:]...)
			return dsn, rest
		}
	}
	return "", args
}

// attachIndexer opens dsn (if non-empty) and attaches it to rt as its
// historical mirror (spec §6's get_tick/get_disk reaching further back
// than the rollback window). The returned func closes it; callers
// should defer it unconditionally.
func attachIndexer(rt *runtime.Runtime, dsn string) func() {
	if dsn == "" {
		return func() {}
	}
	ix, err := query.Open(dsn)
	if err != nil {
		log.Fatalf("kindelia: %v", err)
	}
	rt.SetIndexer(ix)
	return func() { ix.Close() }
}

func loadFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("kindelia: %v", err)
	}
	return string(data)
}

func applyAll(rt *runtime.Runtime, source string) {
	stmts, err := syntax.ParseProgram(source)
	if err != nil {
		log.Fatalf("kindelia: parse error: %v", err)
	}
	for _, st := range stmts {
		res := statement.Apply(rt, st)
		report(rt, res)
		if res.Err != nil {
			log.Fatalf("kindelia: statement failed: %v", res.Err)
		}
	}
}

func report(rt *runtime.Runtime, res statement.Result) {
	switch res.Kind {
	case statement.KindRun:
		if res.Run != nil {
			fmt.Printf("run => %s (tick %d)\n", syntax.PrintLnk(rt, res.Run.Value), res.Run.Tick)
		}
	case statement.KindCtr, statement.KindFun:
		// Declarations print nothing on success, matching how the
		// original's CLI only surfaces run outputs.
	}
}

func runCommand(args []string) {
	dsn, args := extractIndexFlag(args)
	if len(args) != 1 {
		log.Fatal("kindelia: run requires a file path")
	}
	rt := newRuntime()
	defer attachIndexer(rt, dsn)()
	applyAll(rt, loadFile(args[0]))
}

func tickCommand(args []string) {
	dsn, args := extractIndexFlag(args)
	if len(args) != 1 {
		log.Fatal("kindelia: tick requires a file path")
	}
	rt := newRuntime()
	defer attachIndexer(rt, dsn)()
	applyAll(rt, loadFile(args[0]))
	rt.Tick()
	fmt.Printf("tick => %d\n", rt.GetTick())
}

func rollbackCommand(args []string) {
	if len(args) != 2 {
		log.Fatal("kindelia: rollback requires a file path and a target tick")
	}
	var target uint64
	if _, err := fmt.Sscanf(args[1], "%d", &target); err != nil {
		log.Fatalf("kindelia: invalid tick %q", args[1])
	}
	rt := newRuntime()
	applyAll(rt, loadFile(args[0]))
	rt.Rollback(target)
	fmt.Printf("rollback => %d\n", rt.GetTick())
}

func replCommand(args []string) {
	dsn, _ := extractIndexFlag(args)
	rt := newRuntime()
	defer attachIndexer(rt, dsn)()
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("kindelia repl — one statement per line, blank line to tick")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "" {
			rt.Tick()
			fmt.Printf("tick => %d\n", rt.GetTick())
			continue
		}
		stmts, err := syntax.ParseProgram(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
			continue
		}
		for _, st := range stmts {
			res := statement.Apply(rt, st)
			if res.Err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", res.Err)
				continue
			}
			report(rt, res)
		}
	}
}

// queryCommand looks a function's disk root up in the SQL-backed
// historical indexer (spec §6 persistence/query out-interface,
// reachable once a tick has aged out of the in-memory rollback stack).
func queryCommand(args []string) {
	if len(args) != 2 {
		log.Fatal("kindelia: query requires a DSN and a function name")
	}
	dsn, fidName := args[0], args[1]
	ix, err := query.Open(dsn)
	if err != nil {
		log.Fatalf("kindelia: %v", err)
	}
	defer ix.Close()

	tick, err := ix.GetTick()
	if err != nil {
		log.Fatalf("kindelia: %v", err)
	}

	fidWord, err := name.Encode(fidName)
	if err != nil {
		log.Fatalf("kindelia: %v", err)
	}
	root, ok, err := ix.GetDisk(fidWord, tick)
	if err != nil {
		log.Fatalf("kindelia: %v", err)
	}
	if !ok {
		fmt.Printf("%s: no recorded disk state\n", fidName)
		return
	}
	fmt.Printf("%s @ tick %d => %s\n", fidName, tick, syntax.PrintLnk(nil, root))
}

// serveCommand runs the §5 external mailbox: inbound statement bodies
// arrive over websocket, queue onto a bounded channel, and are applied
// one at a time by this single goroutine (the runtime is not
// safe for concurrent statement application), with results reported
// back over each submission's one-shot reply channel.
func serveCommand(args []string) {
	dsn, args := extractIndexFlag(args)
	if len(args) != 1 {
		log.Fatal("kindelia: serve requires a listen address")
	}
	addr := args[0]

	rt := newRuntime()
	defer attachIndexer(rt, dsn)()
	mailbox := gateway.NewMailbox(64)

	go func() {
		for job := range mailbox.Inbox() {
			stmts, err := syntax.ParseProgram(string(job.Body))
			if err != nil {
				mailbox.Resolve(job.ID, "", err)
				continue
			}
			var last statement.Result
			for _, st := range stmts {
				last = statement.Apply(rt, st)
				if last.Err != nil {
					break
				}
			}
			if last.Err != nil {
				mailbox.Resolve(job.ID, "", last.Err)
				continue
			}
			output := ""
			if last.Run != nil {
				output = syntax.PrintLnk(rt, last.Run.Value)
			}
			mailbox.Resolve(job.ID, output, nil)
		}
	}()

	http.HandleFunc("/", mailbox.Handler())
	log.Printf("kindelia: serving the external mailbox on %s", addr)
	server := &http.Server{Addr: addr, ReadTimeout: 10 * time.Second}
	log.Fatal(server.ListenAndServe())
}

