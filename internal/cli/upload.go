// Package cli — upload.go implements the "hcpi upload" command.
//
// The upload command ships sequencing data into the attached bucket:
//  1. Collect candidate files (one file, or a directory walked recursively)
//  2. Validate each candidate as gzipped FASTQ; in a directory walk,
//     files that fail validation are skipped with a debug log
//  3. Generate the tag map document associating every file with the
//     pipeline tag
//  4. Upload the data files with the tag attached as user metadata; every
//     transfer is checksum-verified against the remote ETag
//  5. Upload the tag map next to the data files
//  6. Output results (text or JSON)
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/genomic-medicine-sweden/hcpi/internal/fastq"
	"github.com/genomic-medicine-sweden/hcpi/internal/hcp"
	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// uploadFlags holds the flag values for the upload command.
// These are bound to cobra flags in NewUploadCommand.
type uploadFlags struct {
	// input is the local file or directory to upload.
	input string

	// destination is the remote key prefix the files land under.
	destination string

	// tag is the pipeline tag recorded in the tag map and in each
	// object's user metadata.
	tag string

	// metaPath is where the tag map document is written locally before
	// upload. Empty means a timestamped default name.
	metaPath string
}

// NewUploadCommand creates the "upload" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewUploadCommand() *cobra.Command {
	flags := &uploadFlags{}

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload fastq files with tag metadata",
		Long: `Upload gzipped FASTQ files into the bucket under a key prefix.

A single file must pass fastq validation (suffix and first record) or the
command fails. A directory is walked recursively and files that fail
validation are skipped; run with --verbose to see why.

Every batch gets a tag map document (meta-<timestamp>.json by default)
recording the pipeline tag and the remote location of each file. The
document is written locally and uploaded under the same prefix. Transfers
are verified against the remote checksum; a corrupted upload is deleted
remotely and reported as an error.

Examples:
  hcpi upload -b ngs-data -i sample_R1.fastq.gz -d run42 -t GMS560
  hcpi upload -b ngs-data -i ./fastq/ -d run42 -t GMS560 -m run42-meta.json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "Local fastq file or directory to upload")
	cmd.Flags().StringVarP(&flags.destination, "destination", "d", "", "Remote key prefix")
	cmd.Flags().StringVarP(&flags.tag, "tag", "t", "", "Pipeline tag for the batch")
	cmd.Flags().StringVarP(&flags.metaPath, "meta", "m", "", "Tag map output path (default: meta-<timestamp>.json)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("destination")
	_ = cmd.MarkFlagRequired("tag")

	return cmd
}

// runUpload is the main logic function for the upload command.
func runUpload(ctx context.Context, flags *uploadFlags) error {
	// Step 1: Collect and validate the files before touching the network,
	// so a batch with nothing valid in it fails fast.
	files, err := collectUploadFiles(flags.input)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return model.NewCLIError(model.ExitValidationError,
			fmt.Sprintf("no valid fastq files found under %s", flags.input))
	}

	// Step 2: Build the tag map and write it next to the invocation.
	metaPath := flags.metaPath
	if metaPath == "" {
		metaPath = fastq.DefaultMetaName()
	}

	tagMap := fastq.NewTagMap(flags.tag)
	for _, file := range files {
		tagMap.Add(file, remoteKey(flags.destination, file))
	}
	if err := tagMap.Write(metaPath); err != nil {
		return err
	}
	Logger().Debug("Wrote tag map", zap.String("path", metaPath), zap.Int("files", len(files)))

	mgr, err := openManager(ctx, false)
	if err != nil {
		return err
	}

	// Step 3: Upload the data files. The tag rides along as user
	// metadata so a bare object listing still reveals its batch.
	metadata := map[string]string{"tag": flags.tag}
	uploaded := make([]string, 0, len(files)+1)
	for _, file := range files {
		key := remoteKey(flags.destination, file)
		Logger().Info("Uploading", zap.String("file", file), zap.String("key", key))
		if err := mgr.Upload(ctx, file, key, metadata); err != nil {
			return err
		}
		uploaded = append(uploaded, key)
	}

	// Step 4: Upload the tag map under the same prefix.
	metaKey := remoteKey(flags.destination, metaPath)
	Logger().Info("Uploading tag map", zap.String("key", metaKey))
	if err := mgr.Upload(ctx, metaPath, metaKey, metadata); err != nil {
		return err
	}
	uploaded = append(uploaded, metaKey)

	printUploadResult(mgr, flags.tag, uploaded)
	return nil
}

// collectUploadFiles resolves the input path into the list of local
// files to upload, all of which have passed fastq validation.
//
// A single file failing validation is an error; within a directory walk,
// invalid files are skipped with a debug log so one stray readme does not
// sink a run's worth of data.
func collectUploadFiles(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitValidationError,
			fmt.Sprintf("cannot read upload input %s", input), err)
	}

	if !info.IsDir() {
		if err := fastq.Validate(input); err != nil {
			return nil, err
		}
		return []string{input}, nil
	}

	var files []string
	walkErr := filepath.WalkDir(input, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := fastq.Validate(p); err != nil {
			Logger().Debug("Skipping file", zap.String("path", p), zap.Error(err))
			return nil
		}
		files = append(files, p)
		return nil
	})
	if walkErr != nil {
		return nil, model.WrapCLIError(model.ExitValidationError,
			fmt.Sprintf("failed to walk %s", input), walkErr)
	}

	return files, nil
}

// remoteKey builds the object key for a local file: the destination
// prefix joined with the file's base name. Keys always use forward
// slashes, whatever the local path separator is.
func remoteKey(destination, localPath string) string {
	return path.Join(destination, filepath.Base(localPath))
}

// printUploadResult outputs the upload command result in text or JSON
// format, depending on the global --json flag.
func printUploadResult(mgr *hcp.Manager, tag string, keys []string) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"bucket":   mgr.Bucket(),
			"tag":      tag,
			"uploaded": keys,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Uploaded %d object(s) to bucket %q:\n", len(keys), mgr.Bucket())
	for _, key := range keys {
		fmt.Printf("  %s\n", key)
	}
}
