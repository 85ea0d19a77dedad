// Package docs provides generated OpenAPI documentation.
//
// Wikibook API
//
//	@title			Wikibook API
//	@version		1.0
//	@description	Admin service for turning wiki article sets into downloadable PDF books.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/yosihaf/wikibook
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/wikibook/serve.go -o ./swagger --parseDependency --parseInternal
