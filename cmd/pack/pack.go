// Package pack installs and builds sound packs: archives of audio files that
// catalog resource refs resolve against.
package pack

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/lull/cmd/common"
	"github.com/gigurra/lull/cmd/common/audio"
	"github.com/gigurra/lull/cmd/common/config"
	"github.com/gigurra/lull/cmd/common/termui"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mholt/archives"
	"github.com/spf13/cobra"
)

// CatalogFile is copied along with the audio when a pack ships its own catalog.
const CatalogFile = "catalog.json"

func Cmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "pack",
		Short: "Install, list and build sound packs",
		SubCmds: []*cobra.Command{
			installCmd(),
			listCmd(),
			createCmd(),
		},
	}.ToCobra()
}

type InstallParams struct {
	Archive   string `pos:"true" help:"Pack archive (zip, tar.gz, 7z, ...)."`
	SoundsDir string `short:"d" optional:"true" help:"Install into this directory instead of the configured sounds dir."`
	Verbose   bool   `short:"v" optional:"true" help:"Print each installed file."`
}

type ListParams struct {
	SoundsDir string `short:"d" optional:"true" help:"Directory to list instead of the configured sounds dir."`
}

type CreateParams struct {
	Dir     string `pos:"true" help:"Directory of sounds to pack."`
	Output  string `short:"o" help:"Archive to write. The format follows the extension."`
	Verbose bool   `short:"v" optional:"true" help:"Print each packed file."`
}

func soundsDir(override string) string {
	if override != "" {
		return override
	}
	cfg, err := config.Load()
	if err != nil {
		common.Fail("pack", err)
	}
	return cfg.SoundsDir
}

func installCmd() *cobra.Command {
	return boa.CmdT[InstallParams]{
		Use:         "install",
		Short:       "Extract the audio files of a pack into the sounds dir",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *InstallParams, cmd *cobra.Command, args []string) {
			dir := soundsDir(params.SoundsDir)
			installed, err := install(context.Background(), params.Archive, dir, func(name string) {
				if params.Verbose {
					fmt.Printf("x %s\n", name)
				}
			})
			if err != nil {
				common.Fail("pack install", err)
			}
			fmt.Printf("Installed %d files into %s\n", len(installed), dir)
			if rel, ok := shippedCatalog(installed); ok {
				fmt.Printf("The pack ships a catalog. Play it with: lull relax --catalog %s\n", filepath.Join(dir, filepath.FromSlash(rel)))
			}
		},
	}.ToCobra()
}

// shippedCatalog returns the installed catalog file, preferring the shallowest one.
func shippedCatalog(installed []string) (string, bool) {
	found := ""
	for _, rel := range installed {
		if path.Base(rel) != CatalogFile {
			continue
		}
		if found == "" || strings.Count(rel, "/") < strings.Count(found, "/") {
			found = rel
		}
	}
	return found, found != ""
}

func listCmd() *cobra.Command {
	return boa.CmdT[ListParams]{
		Use:         "list",
		Short:       "List installed sounds",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ListParams, cmd *cobra.Command, args []string) {
			if err := runList(os.Stdout, soundsDir(params.SoundsDir), termui.TerminalWidth()); err != nil {
				common.Fail("pack list", err)
			}
		},
	}.ToCobra()
}

func createCmd() *cobra.Command {
	return boa.CmdT[CreateParams]{
		Use:         "create",
		Short:       "Build a pack archive from a directory of sounds",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *CreateParams, cmd *cobra.Command, args []string) {
			packed, err := create(context.Background(), params.Dir, params.Output)
			if err != nil {
				common.Fail("pack create", err)
			}
			if params.Verbose {
				for _, name := range packed {
					fmt.Printf("a %s\n", name)
				}
			}
			fmt.Printf("Packed %d files into %s\n", len(packed), params.Output)
		},
	}.ToCobra()
}

// packable reports whether an archive entry belongs in the sounds dir.
func packable(name string) bool {
	return audio.Supported(name) || filepath.Base(name) == CatalogFile
}

// install extracts the playable entries of archivePath into dir and returns
// their slash-separated paths relative to dir.
func install(ctx context.Context, archivePath, dir string, onFile func(string)) ([]string, error) {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("cannot open pack: %w", err)
	}
	defer archiveFile.Close()

	format, reader, err := archives.Identify(ctx, archivePath, archiveFile)
	if err != nil {
		return nil, fmt.Errorf("cannot identify pack format: %w", err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return nil, fmt.Errorf("%s: format does not support extraction", archivePath)
	}

	// Zip and 7z read from the central directory and need the seekable file.
	var archiveReader io.Reader = reader
	switch format.(type) {
	case archives.Zip, archives.SevenZip:
		if _, err := archiveFile.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		archiveReader = archiveFile
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid sounds dir: %s", dir)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("cannot create sounds dir: %w", err)
	}

	var installed []string
	err = extractor.Extract(ctx, archiveReader, func(ctx context.Context, f archives.FileInfo) error {
		if f.IsDir() || !f.Mode().IsRegular() || !packable(f.NameInArchive) {
			return nil
		}
		dest, err := safeJoin(root, f.NameInArchive)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		if err := copyOut(f, dest); err != nil {
			return fmt.Errorf("%s: %w", f.NameInArchive, err)
		}
		rel, _ := filepath.Rel(root, dest)
		rel = filepath.ToSlash(rel)
		installed = append(installed, rel)
		if onFile != nil {
			onFile(rel)
		}
		return nil
	})
	if err != nil {
		return installed, err
	}
	slices.Sort(installed)
	return installed, nil
}

// safeJoin resolves an archive entry name under root, rejecting entries that escape it.
func safeJoin(root, name string) (string, error) {
	dest := filepath.Join(root, filepath.Clean("/"+name))
	if dest != root && !strings.HasPrefix(dest, root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file path: %s", name)
	}
	return dest, nil
}

func copyOut(f archives.FileInfo, dest string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

type installedSound struct {
	name string
	size int64
}

func scan(dir string) ([]installedSound, error) {
	var sounds []installedSound
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !audio.Supported(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		sounds = append(sounds, installedSound{name: filepath.ToSlash(rel), size: info.Size()})
		return nil
	})
	return sounds, err
}

func runList(w io.Writer, dir string, width int) error {
	sounds, err := scan(dir)
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "No sounds installed in %s\n", dir)
		return nil
	}
	if err != nil {
		return err
	}
	if len(sounds) == 0 {
		fmt.Fprintf(w, "No sounds installed in %s\n", dir)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetAllowedRowLength(width)
	t.AppendHeader(table.Row{"Resource", "Size"})
	var total int64
	for _, s := range sounds {
		t.AppendRow(table.Row{s.name, formatSize(s.size)})
		total += s.size
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d files", len(sounds)), formatSize(total)})
	t.Render()
	return nil
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// create packs the audio files and catalog under dir into output, keeping
// paths relative to dir so the pack installs with the same resource refs.
func create(ctx context.Context, dir, output string) ([]string, error) {
	format, _, err := archives.Identify(ctx, output, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot pick a format for %s: %w", output, err)
	}
	archiver, ok := format.(archives.Archiver)
	if !ok {
		return nil, fmt.Errorf("%s: format does not support archive creation", output)
	}

	fileMap := make(map[string]string)
	var names []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !packable(path) {
			return nil
		}
		rel, _ := filepath.Rel(dir, path)
		rel = filepath.ToSlash(rel)
		fileMap[path] = rel
		names = append(names, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", dir, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no .mp3 or .wav files under %s", dir)
	}

	files, err := archives.FilesFromDisk(ctx, nil, fileMap)
	if err != nil {
		return nil, fmt.Errorf("failed to collect files: %w", err)
	}

	out, err := os.Create(output)
	if err != nil {
		return nil, fmt.Errorf("cannot create output file: %w", err)
	}
	defer out.Close()

	if err := archiver.Archive(ctx, out, files); err != nil {
		os.Remove(output)
		return nil, fmt.Errorf("failed to create pack: %w", err)
	}
	slices.Sort(names)
	return names, nil
}
