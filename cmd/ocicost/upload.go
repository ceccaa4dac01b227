package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/thannaske/ocicost/pkg/objectstore"
)

var objectName string

var uploadCmd = &cobra.Command{
	Use:   "upload [report-file]",
	Short: "Upload an existing report",
	Long: `Upload a report file written by an earlier run to the bucket, without
querying usage again. The object name defaults to the file's base name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		s3Client, err := objectstore.NewS3Client(cmd.Context(), config)
		if err != nil {
			return err
		}

		if !objectstore.NewUploader(s3Client, logger).Upload(cmd.Context(), path, config.Bucket, objectName) {
			return fmt.Errorf("upload of %s to bucket %s failed", path, config.Bucket)
		}
		fmt.Printf("Uploaded %s to bucket %s.\n", path, config.Bucket)

		if database := openHistory(); database != nil {
			defer database.Close()
			if err := database.MarkUploaded(filepath.Base(path)); err != nil {
				logger.WithError(err).Warn("failed to update run history")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&objectName, "object", "", "object name (default: the file's base name)")
}
