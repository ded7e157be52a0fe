package analysis

import (
	"regexp"
	"slices"
)

// frameworkSignature describes how a framework is recognized. Manifest deps
// are checked first; files and source are the fallback.
type frameworkSignature struct {
	Name string
	// Deps are manifest dependency names; a trailing "/" matches as a prefix
	Deps []string
	// JVM substrings searched in pom.xml and build.gradle
	JVM []string
	// Files are base file names that give the framework away
	Files []string
	// Langs restricts Source to files of these languages
	Langs  []string
	Source *regexp.Regexp
}

var jsLangs = []string{"JavaScript", "TypeScript"}

var frameworkSignatures = []frameworkSignature{
	// JavaScript and TypeScript
	{Name: "React", Deps: []string{"react"}, Langs: jsLangs, Source: regexp.MustCompile(`from\s+['"]react['"]`)},
	{Name: "Next.js", Deps: []string{"next"}, Files: []string{"next.config.js", "next.config.mjs", "next.config.ts"}},
	{Name: "Vue.js", Deps: []string{"vue"}, Files: []string{"vue.config.js"}},
	{Name: "Nuxt", Deps: []string{"nuxt"}, Files: []string{"nuxt.config.js", "nuxt.config.ts"}},
	{Name: "Angular", Deps: []string{"@angular/core"}, Files: []string{"angular.json"}},
	{Name: "Svelte", Deps: []string{"svelte"}, Files: []string{"svelte.config.js"}},
	{Name: "Express", Deps: []string{"express"}, Langs: jsLangs, Source: regexp.MustCompile(`require\(\s*['"]express['"]\s*\)`)},
	{Name: "Koa", Deps: []string{"koa"}},
	{Name: "Fastify", Deps: []string{"fastify"}},
	{Name: "NestJS", Deps: []string{"@nestjs/core"}},
	{Name: "Electron", Deps: []string{"electron"}},
	{Name: "React Native", Deps: []string{"react-native"}},
	{Name: "Redux", Deps: []string{"redux", "@reduxjs/toolkit"}},
	{Name: "Tailwind CSS", Deps: []string{"tailwindcss"}, Files: []string{"tailwind.config.js", "tailwind.config.ts"}},
	{Name: "Jest", Deps: []string{"jest"}, Files: []string{"jest.config.js", "jest.config.ts"}},
	{Name: "Mocha", Deps: []string{"mocha"}},
	{Name: "GraphQL", Deps: []string{"graphql", "github.com/99designs/gqlgen", "graphene"}},

	// Python
	{Name: "Django", Deps: []string{"django"}, Files: []string{"manage.py"}, Langs: []string{"Python"}, Source: regexp.MustCompile(`(?m)^\s*from\s+django\b`)},
	{Name: "Flask", Deps: []string{"flask"}, Langs: []string{"Python"}, Source: regexp.MustCompile(`(?m)^\s*from\s+flask\s+import\b`)},
	{Name: "FastAPI", Deps: []string{"fastapi"}, Langs: []string{"Python"}, Source: regexp.MustCompile(`(?m)^\s*from\s+fastapi\s+import\b`)},
	{Name: "pytest", Deps: []string{"pytest"}, Files: []string{"pytest.ini", "conftest.py"}},
	{Name: "NumPy", Deps: []string{"numpy"}},
	{Name: "pandas", Deps: []string{"pandas"}},
	{Name: "TensorFlow", Deps: []string{"tensorflow"}},
	{Name: "PyTorch", Deps: []string{"torch"}},
	{Name: "scikit-learn", Deps: []string{"scikit-learn"}},
	{Name: "Celery", Deps: []string{"celery"}},
	{Name: "SQLAlchemy", Deps: []string{"sqlalchemy"}},

	// Go
	{Name: "Gin", Deps: []string{"github.com/gin-gonic/gin"}},
	{Name: "Echo", Deps: []string{"github.com/labstack/echo"}},
	{Name: "Fiber", Deps: []string{"github.com/gofiber/fiber"}},
	{Name: "chi", Deps: []string{"github.com/go-chi/chi"}},
	{Name: "Cobra", Deps: []string{"github.com/spf13/cobra"}},
	{Name: "GORM", Deps: []string{"gorm.io/gorm"}},
	{Name: "gRPC", Deps: []string{"google.golang.org/grpc", "grpcio", "@grpc/grpc-js"}},

	// Rust
	{Name: "Actix Web", Deps: []string{"actix-web"}},
	{Name: "Rocket", Deps: []string{"rocket"}},
	{Name: "Axum", Deps: []string{"axum"}},
	{Name: "Tokio", Deps: []string{"tokio"}},
	{Name: "Serde", Deps: []string{"serde"}},

	// Ruby
	{Name: "Ruby on Rails", Deps: []string{"rails"}, Files: []string{"config.ru"}},
	{Name: "Sinatra", Deps: []string{"sinatra"}},
	{Name: "RSpec", Deps: []string{"rspec", "rspec-rails"}, Files: []string{".rspec"}},

	// PHP
	{Name: "Laravel", Deps: []string{"laravel/framework"}, Files: []string{"artisan"}},
	{Name: "Symfony", Deps: []string{"symfony/"}},

	// JVM
	{Name: "Spring Boot", JVM: []string{"spring-boot"}, Langs: []string{"Java"}, Source: regexp.MustCompile(`@SpringBootApplication`)},
	{Name: "Hibernate", JVM: []string{"hibernate"}},
	{Name: "JUnit", JVM: []string{"junit"}},

	// Mobile
	{Name: "Flutter", Files: []string{"pubspec.yaml"}},
}

// matchManifest reports whether declared dependencies name the framework
func (s frameworkSignature) matchManifest(deps *dependencySet) bool {
	for _, d := range s.Deps {
		if deps.has(d) {
			return true
		}
	}
	for _, needle := range s.JVM {
		if deps.jvmContains(needle) {
			return true
		}
	}
	return false
}

// scans reports whether Source applies to files of lang
func (s frameworkSignature) scans(lang string) bool {
	return s.Source != nil && slices.Contains(s.Langs, lang)
}

func (s frameworkSignature) matchFiles(names map[string]bool) bool {
	for _, f := range s.Files {
		if names[f] {
			return true
		}
	}
	return false
}
