// Package core provides the mapping-driven TSV ingestion engine.
//
// The package turns the tab-separated output files of an external extraction tool into
// typed records for an artifact store. It has no transport or storage dependencies of its
// own: stores are reached through the [TypeRegistry] and [ArtifactStore] interfaces and
// the CLI and HTTP layers call into [Ingestor].
//
// # Mapping Document
//
// A mapping document binds tool output files to record types and columns to attribute
// types. It is loaded once by [LoadMapping] into three tables:
//
//   - Files: one [FileMapping] per lower-cased file name
//   - RecordTypes: the [RecordTypeMapping] each file produces, with an optional fixed comment
//   - Attributes: the ordered [AttributeMapping] list per file
//
// A minimal XML document:
//
//	<FileNames>
//	  <FileName filename="Chrome History.tsv" description="Chrome History">
//	    <ArtifactName artifactname="TSK_WEB_HISTORY" comment="null">
//	      <AttributeName attributename="TSK_DATETIME_ACCESSED" columnName="Last Visit Time" required="yes"/>
//	      <AttributeName attributename="TSK_URL" columnName="URL" required="yes"/>
//	      <AttributeName attributename="null" columnName="Visit Count" required="no"/>
//	    </ArtifactName>
//	  </FileName>
//	</FileNames>
//
// # Ingestion Pass
//
// One pass walks an output directory and processes every file the mapping knows about:
//
//  1. [Ingestor.FindFiles] keeps .tsv files whose base name is a mapping key
//  2. [RowReader] streams each file and builds a [ColumnIndex] from its header
//  3. [Assembler.Assemble] coerces every mapped cell through [CoerceValue]
//  4. Accepted rows become records, posted in one batch at the end of the pass
//     (or every [IngestOptions.MaxBatchRecords] records)
//
// # Error Handling
//
// Row-level problems never abort a pass. They are returned as a [RowOutcome] with a
// [RejectReason] and logged. Only configuration load failures ([ErrConfigParse]) and
// discovery failures ([ErrFileAccess]) are returned as errors.
package core
