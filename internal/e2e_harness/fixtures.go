package e2e_harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lychee-technology/studiokit"
)

var themeFiles = map[string]string{
	"blocks/HeroSplit.json": `{
  "makeStudioFields": true,
  "version": 1,
  "description": "Hero with image",
  "fields": [
    {"type": "text", "name": "Headline", "default": "Build faster"},
    {"type": "image", "name": "Photo", "default": "https://cdn.example.com/hero.png"},
    {"type": "toggle", "name": "Show CTA", "default": true},
    {"type": "repeater", "name": "Features", "default": [{"title": "Fast"}],
     "config": {"fields": [{"type": "text", "name": "Title"}]}}
  ]
}`,
	"blocks/HeroSplit.html": "<section>{{headline}}</section>",
	"blocks/FAQList.json":   `{"makeStudioFields": true, "version": 1, "fields": [{"type": "richText", "name": "Intro", "default": "<p>Questions</p>"}]}`,
	"blocks/FAQList.html":   "<dl></dl>",
	"partials/footer.html":  "<footer></footer>",
}

var siteFiles = map[string]string{
	"site.json": `{"siteId": "", "theme": "studio", "name": "Acme"}`,
	"pages/home.json": `{
  "name": "Home",
  "settings": {"title": "Welcome"},
  "blocks": [
    {"block": "HeroSplit", "content": {"headline": "Hello", "Features": [{"title": "One"}, {"title": "Two"}]}},
    {"block": "Missing", "content": {}}
  ]
}`,
	"pages/faq.json": `{"name": "FAQ", "blocks": [{"block": "faqlist", "content": {"intro": "<p>Ask</p>"}}]}`,
}

func writeFiles(dir string, files map[string]string) error {
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// WriteTheme lays out a theme with two blocks and one partial under dir.
func WriteTheme(dir string) error {
	return writeFiles(dir, themeFiles)
}

// WriteSite lays out a site directory with two pages under dir.
func WriteSite(dir string) error {
	return writeFiles(dir, siteFiles)
}

// SeedSite stores an empty site and returns its id.
func SeedSite(ctx context.Context, store studiokit.Store, name string) (string, error) {
	site, err := store.SaveSite(ctx, &studiokit.Site{Name: name, Theme: "studio"})
	if err != nil {
		return "", err
	}
	return site.ID, nil
}

// ListObjects returns the sorted keys stored under prefix.
func ListObjects(ctx context.Context, client *s3.Client, bucket, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	sort.Strings(keys)
	return keys, nil
}
