package routes

import (
	"html/template"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/m-barthelemy/dating-pwa/models"
	"github.com/markbates/pkger"
)

type TemplateHandler struct {
	config *models.Config
}

var templates *template.Template
var assets map[string]string

func NewTemplateHandler(config *models.Config) *TemplateHandler {
	assets = make(map[string]string)
	return &TemplateHandler{config: config}
}

func (g *TemplateHandler) HandleEmbeddedTemplate(response http.ResponseWriter, request *http.Request) {
	fileName := strings.Trim(request.URL.Path, "/")
	if fileName == "" {
		fileName = "index"
	}

	err := templates.ExecuteTemplate(response, fileName, g.config)
	if err != nil {
		log.Printf("Error serving template %s: %s", fileName, err.Error())
		http.Error(response, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	}
}

func (g *TemplateHandler) HandleStaticAsset(response http.ResponseWriter, request *http.Request) {
	fileName := request.URL.Path
	if content, exists := assets[fileName]; exists {
		response.Write([]byte(content))
	} else {
		log.Printf("%s: not found", fileName)
		http.Error(response, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	}
}

// HandleServiceWorker serves the worker script from the root path. The
// Service-Worker-Allowed header lets its scope cover the entire origin,
// and no-cache makes new worker versions roll out promptly.
func (g *TemplateHandler) HandleServiceWorker(response http.ResponseWriter, request *http.Request) {
	content, exists := assets["/assets/sw.js"]
	if !exists {
		http.Error(response, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	response.Header().Set("Content-Type", "application/javascript")
	response.Header().Set("Cache-Control", "no-cache")
	response.Header().Set("Service-Worker-Allowed", "/")
	response.Write([]byte(content))
}

// HandleIcon serves the app icon referenced by the manifest and the
// notification payloads.
func (g *TemplateHandler) HandleIcon(response http.ResponseWriter, request *http.Request) {
	content, exists := assets["/assets/icon.svg"]
	if !exists {
		http.Error(response, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	response.Header().Set("Content-Type", "image/svg+xml")
	response.Header().Set("Cache-Control", "public, max-age=86400")
	response.Write([]byte(content))
}

func (g *TemplateHandler) CompileTemplates(dir string) error {
	tpl := template.New("")
	// Since Walk receives a dynamic value, pkger won't be able to find the
	// actual directory to package from the next line, which is why we used
	// pkger.Include() in routes.go.
	err := pkger.Walk(dir, func(path string, info os.FileInfo, _ error) error {
		if info.IsDir() || strings.Contains(path, "/assets/") {
			return nil
		}
		// Load file from pkger virtual file, or real file if pkged.go has
		// not yet been generated, during development.
		f, _ := pkger.Open(path)
		sl, _ := ioutil.ReadAll(f)
		tpl.Parse(string(sl))
		return nil
	})
	loadStaticAssets(dir)
	templates = tpl
	return err
}

func loadStaticAssets(dir string) error {
	err := pkger.Walk(dir, func(path string, info os.FileInfo, _ error) error {
		if info.IsDir() || !strings.Contains(path, "/assets/") {
			return nil
		}
		f, _ := pkger.Open(path)
		sl, _ := ioutil.ReadAll(f)
		filePath := strings.Split(path, ":")[1]
		assetPath := strings.TrimPrefix(filePath, "/templates")
		assets[assetPath] = string(sl)
		return nil
	})
	return err
}
