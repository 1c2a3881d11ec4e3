package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lgulliver/craftcms/internal/storage"
	"github.com/lgulliver/craftcms/pkg/types"
	"github.com/lgulliver/craftcms/pkg/utils"
	"github.com/spf13/cobra"
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Manage image assets",
}

var imagesInsertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Insert an image described by JSON on stdin",
	Long: `Insert an image from a local file. The description is read from stdin:

  {"url": "./cat.jpg", "alt": "A cat", "description": "sleeping",
   "slug": "cat-1", "keywords": ["pet", "cat"]}

The media type is detected from the file contents.`,
	Args: cobra.NoArgs,
	RunE: runImagesInsert,
}

func init() {
	imagesCmd.AddCommand(imagesInsertCmd)
}

// insertRequest is the stdin document accepted by images insert
type insertRequest struct {
	URL         string   `json:"url"`
	Alt         string   `json:"alt"`
	Description string   `json:"description"`
	Slug        string   `json:"slug"`
	Keywords    []string `json:"keywords"`
}

func readInsertRequest(cmd *cobra.Command) (*insertRequest, error) {
	var req insertRequest
	if err := json.NewDecoder(cmd.InOrStdin()).Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode image JSON: %w", err)
	}
	if req.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	return &req, nil
}

func runImagesInsert(cmd *cobra.Command, args []string) error {
	req, err := readInsertRequest(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(req.URL)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", req.URL, err)
	}
	mediaType, err := storage.DetectFileMediaType(req.URL)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	asset, err := a.assets.Create(cmd.Context(), types.AssetInput{
		Alt:         req.Alt,
		Description: req.Description,
		Slug:        req.Slug,
		Keywords:    req.Keywords,
	}, data, mediaType)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "inserted %s as %s (%s, %s)\n",
		asset.Slug, asset.Filename, mediaType, utils.FormatBytes(int64(len(data))))
	return nil
}
