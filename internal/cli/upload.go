package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JuanRG-20221039/paulofraire-media/internal/feedback"
	"github.com/JuanRG-20221039/paulofraire-media/internal/forms"
	"github.com/JuanRG-20221039/paulofraire-media/internal/logger"
	"github.com/JuanRG-20221039/paulofraire-media/internal/models"
	"github.com/JuanRG-20221039/paulofraire-media/internal/preview"
	"github.com/JuanRG-20221039/paulofraire-media/internal/staging"
	"github.com/JuanRG-20221039/paulofraire-media/internal/stubserver"
	"github.com/JuanRG-20221039/paulofraire-media/internal/upload"
)

var (
	uploadProfile  string
	uploadResource string
	uploadUpdateID string
	uploadFields   []string
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload [files...]",
		Short: "Stage files and submit them to the CMS",
		Long: `Stage files through the named upload profile and submit them together
with scalar form fields as one multipart request.

Examples:
  mediactl upload --profile news --resource news --field title="Open day" a.jpg b.jpg
  mediactl upload --profile staff-photo --resource staff --update 42 photo.jpg`,
		Args: cobra.ArbitraryArgs,
		RunE: runUpload,
	}

	cmd.Flags().StringVar(&uploadProfile, "profile", "", "Upload profile name (required)")
	cmd.Flags().StringVar(&uploadResource, "resource", "", "Target resource, e.g. news (required)")
	cmd.Flags().StringVar(&uploadUpdateID, "update", "", "Update the record with this ID instead of creating one")
	cmd.Flags().StringArrayVar(&uploadFields, "field", nil, "Scalar form field as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("resource")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	if cfg.BaseURL == "" {
		return errors.New("no CMS base URL configured, set CMS_BASE_URL or pass --server")
	}

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	profile, err := catalog.Profile(uploadProfile)
	if err != nil {
		return err
	}

	fields, err := parseFields(uploadFields)
	if err != nil {
		return err
	}

	files := make([]*models.LocalFile, 0, len(args))
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		name := filepath.Base(path)
		files = append(files, models.NewOSFile(path, name, mimeFromExtension(filepath.Ext(name)), info.Size()))
	}

	notifier := feedback.NewConsole(logger.Logger, os.Stdin, os.Stdout)
	set := staging.NewPendingMediaSet(preview.NewRegistry())
	controller := forms.NewController(set, profile.Rules(), notifier, stubserver.ExtractMedia, logger.Logger)

	if len(files) > 0 && !controller.StageFiles(files...) {
		return errors.New("files rejected by validation")
	}

	target := upload.Target{
		Method: "POST",
		URL:    fmt.Sprintf("%s/api/v1/%s", cfg.BaseURL, uploadResource),
	}
	if uploadUpdateID != "" {
		target.Method = "PUT"
		target.URL = fmt.Sprintf("%s/%s", target.URL, uploadUpdateID)
	}

	session := upload.NewSession(target, profile.Options(cfg.Token), logger.Logger)

	onProgress := func(percent int) {
		fmt.Printf("\ruploading... %3d%%", percent)
		if percent == 100 {
			fmt.Println()
		}
	}

	out, err := controller.Submit(cmd.Context(), session, fields, nil, onProgress)
	if err != nil {
		return err
	}
	if out.Kind != models.OutcomeSuccess {
		return errors.New("upload did not succeed")
	}
	return nil
}

// parseFields turns repeated key=value flags into the scalar field map
func parseFields(pairs []string) (map[string]string, error) {
	fields := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --field %q, expected key=value", pair)
		}
		fields[key] = value
	}
	return fields, nil
}

// mimeFromExtension maps known extensions to the MIME types the backend
// accepts; unknown extensions fall through to octet-stream and get
// rejected by the profile's allow-list
func mimeFromExtension(ext string) string {
	extensionMimeTypes := map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".mp4":  "video/mp4",
		".webm": "video/webm",
		".pdf":  "application/pdf",
	}

	if mt, ok := extensionMimeTypes[strings.ToLower(ext)]; ok {
		return mt
	}
	return "application/octet-stream"
}
