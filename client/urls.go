package client

import "fmt"

// URLBuilder constructs URLs for an index.
type URLBuilder interface {
	Project(name, version string) string
	API(name, version string) string
	Simple(name string) string
	Upload() string
	PURL(name, version string) string
}

// BaseURLs provides a default URLBuilder implementation.
type BaseURLs struct {
	ProjectFn func(name, version string) string
	APIFn     func(name, version string) string
	SimpleFn  func(name string) string
	UploadFn  func() string
	PURLFn    func(name, version string) string
}

func (b *BaseURLs) Project(name, version string) string {
	if b.ProjectFn != nil {
		return b.ProjectFn(name, version)
	}
	return ""
}

func (b *BaseURLs) API(name, version string) string {
	if b.APIFn != nil {
		return b.APIFn(name, version)
	}
	return ""
}

func (b *BaseURLs) Simple(name string) string {
	if b.SimpleFn != nil {
		return b.SimpleFn(name)
	}
	return ""
}

func (b *BaseURLs) Upload() string {
	if b.UploadFn != nil {
		return b.UploadFn()
	}
	return ""
}

func (b *BaseURLs) PURL(name, version string) string {
	if b.PURLFn != nil {
		return b.PURLFn(name, version)
	}
	return fmt.Sprintf("pkg:%s/%s", "generic", name)
}

// BuildURLs returns a map of all non-empty URLs for a project.
// Keys are "project", "api", "simple", "upload", and "purl".
func BuildURLs(urls URLBuilder, name, version string) map[string]string {
	result := make(map[string]string)
	if v := urls.Project(name, version); v != "" {
		result["project"] = v
	}
	if v := urls.API(name, version); v != "" {
		result["api"] = v
	}
	if v := urls.Simple(name); v != "" {
		result["simple"] = v
	}
	if v := urls.Upload(); v != "" {
		result["upload"] = v
	}
	if v := urls.PURL(name, version); v != "" {
		result["purl"] = v
	}
	return result
}
