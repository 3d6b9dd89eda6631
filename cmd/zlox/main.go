// zlox CLI - the main entry point for running zlox programs
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/cmourglia/zlox/cache"
	"github.com/cmourglia/zlox/compiler"
	"github.com/cmourglia/zlox/manifest"
	"github.com/cmourglia/zlox/server"
	"github.com/cmourglia/zlox/vm"
	"github.com/cmourglia/zlox/wire"

	_ "github.com/tliron/commonlog/simple"
)

// BSD sysexits.
const (
	exitUsage    = 64
	exitData     = 65
	exitSoftware = 70
	exitIO       = 74
)

func main() {
	verbosity := flag.Int("v", 0, "Log verbosity (0-2)")
	disasm := flag.Bool("d", false, "Print the disassembly before running")
	compileOnly := flag.Bool("c", false, "Compile to a .zbc program file instead of running")
	output := flag.String("o", "", "Output path for -c (default: source path with .zbc)")
	srcPath := flag.String("src", "", "Source file to verify a .zbc program against")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	stackSize := flag.Int("stack-size", 0, "Value stack capacity (default 256)")
	heapLimit := flag.Int("heap-limit", 0, "Max live heap objects, 0 for unbounded")
	stressGC := flag.Bool("stress-gc", false, "Collect garbage before every allocation")
	noCache := flag.Bool("no-cache", false, "Skip the compiled-program cache")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: zlox [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a .zlox script or a compiled .zbc program. A directory argument runs\n")
		fmt.Fprintf(os.Stderr, "the entry file of the zlox.toml project found there. With no script, starts\n")
		fmt.Fprintf(os.Stderr, "the REPL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  zlox                   # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  zlox main.zlox         # Run a script\n")
		fmt.Fprintf(os.Stderr, "  zlox -d main.zlox      # Show bytecode, then run\n")
		fmt.Fprintf(os.Stderr, "  zlox -c main.zlox      # Compile to main.zbc\n")
		fmt.Fprintf(os.Stderr, "  zlox main.zbc          # Run a compiled program\n")
		fmt.Fprintf(os.Stderr, "  zlox .                 # Run the project in the current directory\n")
		fmt.Fprintf(os.Stderr, "  zlox --lsp             # Start the language server on stdio\n")
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	if *lspMode {
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIO)
		}
		return
	}

	args := flag.Args()
	if len(args) > 1 {
		flag.Usage()
		os.Exit(exitUsage)
	}

	// Locate project configuration. A directory argument must hold a
	// zlox.toml; a file argument searches upward from the file's directory.
	var man *manifest.Manifest
	var err error
	path := ""
	if len(args) == 1 {
		path = args[0]
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			man, err = manifest.Load(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(exitIO)
			}
			path = man.EntryPath()
		} else {
			man, err = manifest.FindAndLoad(filepath.Dir(path))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(exitIO)
			}
		}
	} else {
		man, err = manifest.FindAndLoad(".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIO)
		}
	}

	cfg := vmConfig(man, *stackSize, *heapLimit, *stressGC)

	if path == "" {
		if *compileOnly {
			if man == nil {
				fmt.Fprintln(os.Stderr, "Error: -c needs a script or a zlox.toml with an entry")
				os.Exit(exitUsage)
			}
			path = man.EntryPath()
		} else {
			runREPL(newVM(cfg))
			return
		}
	}

	if *compileOnly {
		if filepath.Ext(path) == ".zbc" {
			fmt.Fprintf(os.Stderr, "Error: %s is already compiled\n", path)
			os.Exit(exitUsage)
		}
		compileFile(path, *output, *disasm)
		return
	}

	if filepath.Ext(path) == ".zbc" {
		runProgram(path, cfg, *srcPath, *disasm)
		return
	}

	useCache := !*noCache && (man == nil || man.CacheEnabled())
	runScript(path, cfg, useCache, man, *disasm)
}

// vmConfig layers CLI flags over the manifest's [vm] settings.
func vmConfig(man *manifest.Manifest, stackSize, heapLimit int, stress bool) vm.Config {
	var cfg vm.Config
	if man != nil {
		cfg.StackSize = man.VM.StackSize
		cfg.HeapLimit = man.VM.HeapLimit
		cfg.StressGC = man.VM.StressGC
	}
	if stackSize > 0 {
		cfg.StackSize = stackSize
	}
	if heapLimit > 0 {
		cfg.HeapLimit = heapLimit
	}
	if stress {
		cfg.StressGC = true
	}
	return cfg
}

// newVM builds a VM with the compiler wired in.
func newVM(cfg vm.Config) *vm.VM {
	v := vm.New(cfg)
	v.UseCompiler(compiler.Compile)
	return v
}

// runScript compiles and executes a source file, consulting the program
// cache when enabled.
func runScript(path string, cfg vm.Config, useCache bool, man *manifest.Manifest, disasm bool) {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIO)
	}
	hash := wire.Hash(source)

	var store *cache.Store
	if useCache {
		if store = openCache(man); store != nil {
			defer store.Close()
		}
	}

	v := vm.New(cfg)
	defer v.Close()

	chunk := cachedChunk(store, hash, v)
	if chunk == nil {
		chunk = vm.NewChunk()
		if err := compiler.Compile(string(source), chunk, v.Heap()); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(exitData)
		}
		storeChunk(store, chunk, v, hash)
	}

	if disasm {
		fmt.Print(vm.Disassemble(chunk, filepath.Base(path)))
	}

	if err := v.Run(chunk); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(exitSoftware)
	}
}

// runProgram executes a compiled .zbc file. When srcPath is given the
// program's source hash is checked against that file first.
func runProgram(path string, cfg vm.Config, srcPath string, disasm bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIO)
	}

	prog, err := wire.Unmarshal(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(exitData)
	}

	if srcPath != "" {
		source, err := os.ReadFile(srcPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIO)
		}
		if err := wire.VerifySource(prog, source); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(exitData)
		}
	}

	v := vm.New(cfg)
	defer v.Close()

	chunk, err := prog.Chunk(v.Heap())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(exitData)
	}

	if disasm {
		fmt.Print(vm.Disassemble(chunk, filepath.Base(path)))
	}

	if err := v.Run(chunk); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(exitSoftware)
	}
}

// compileFile compiles a source file to a .zbc program without running it.
func compileFile(path, outPath string, disasm bool) {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIO)
	}

	heap := vm.NewHeap()
	chunk := vm.NewChunk()
	if err := compiler.Compile(string(source), chunk, heap); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(exitData)
	}

	if disasm {
		fmt.Print(vm.Disassemble(chunk, filepath.Base(path)))
	}

	prog, err := wire.FromChunk(chunk, heap, wire.Hash(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(exitData)
	}
	data, err := wire.Marshal(prog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(exitData)
	}

	if outPath == "" {
		outPath = strings.TrimSuffix(path, filepath.Ext(path)) + ".zbc"
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIO)
	}
}

// openCache opens the project's cache, or the user cache when the project
// does not pin one. Failures disable caching for this run.
func openCache(man *manifest.Manifest) *cache.Store {
	var (
		store *cache.Store
		err   error
	)
	if man != nil && man.CacheDBPath() != "" {
		store, err = cache.Open(man.CacheDBPath())
	} else {
		store, err = cache.OpenDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cache disabled: %v\n", err)
		return nil
	}
	return store
}

// cachedChunk rebuilds a chunk from the cache. Misses and stale or corrupt
// entries return nil so the caller recompiles.
func cachedChunk(store *cache.Store, hash [32]byte, v *vm.VM) *vm.Chunk {
	if store == nil {
		return nil
	}
	data, err := store.Get(hash)
	if err != nil {
		return nil
	}
	prog, err := wire.Unmarshal(data)
	if err != nil {
		return nil
	}
	chunk, err := prog.Chunk(v.Heap())
	if err != nil {
		return nil
	}
	return chunk
}

// storeChunk saves a freshly compiled chunk. Cache write failures are not
// fatal.
func storeChunk(store *cache.Store, chunk *vm.Chunk, v *vm.VM, hash [32]byte) {
	if store == nil {
		return
	}
	prog, err := wire.FromChunk(chunk, v.Heap(), hash)
	if err != nil {
		return
	}
	data, err := wire.Marshal(prog)
	if err != nil {
		return
	}
	_ = store.Put(hash, data)
}
