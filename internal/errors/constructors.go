package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *PipelineError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *PipelineError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration invalid").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *PipelineError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Pipeline stage errors

func WorkspaceError(operation, path string, cause error) *PipelineError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "workspace operation failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

func FetchFailed(url string, cause error) *PipelineError {
	return Wrap(cause, CategoryNetwork, SeverityFatal, "dependency download failed").
		WithContext("url", url)
}

func ExtractFailed(archive string, cause error) *PipelineError {
	return Wrap(cause, CategoryArchive, SeverityFatal, "archive extraction failed").
		WithContext("archive", archive)
}

func GitFetchFailed(url, tag string, cause error) *PipelineError {
	return Wrap(cause, CategoryGit, SeverityFatal, "source checkout failed").
		WithContext("url", url).
		WithContext("tag", tag)
}

func CompileFailed(module string, cause error) *PipelineError {
	return Wrap(cause, CategoryCompile, SeverityFatal, "compilation failed").
		WithContext("module", module)
}

func TemplateFailed(template string, cause error) *PipelineError {
	return Wrap(cause, CategoryTemplate, SeverityFatal, "template rendering failed").
		WithContext("template", template)
}

func PublishFailed(dest string, cause error) *PipelineError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "publishing artifact failed").
		WithContext("destination", dest)
}

// Internal errors

func InternalError(message string, cause error) *PipelineError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
