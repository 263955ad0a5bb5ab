package gemini

// analysisPrompt는 프로시저 분석 지시문. 뒤에 파서 전처리 요약과 SQL 원문이 붙는다.
// 응답은 순수 JSON 하나여야 하며 코드 펜스는 클라이언트가 벗겨낸다.
const analysisPrompt = `당신은 MSSQL 저장 프로시저 분석 전문가입니다.
아래의 파서 전처리 결과와 저장 프로시저 원문을 함께 보고 분석하세요.
파서 결과와 원문이 다르면 원문을 기준으로 판단합니다.

분석 규칙:
1. description: 이 프로시저가 하는 일을 한국어 2~3문장으로 요약합니다.
2. parameters: 선언된 모든 파라미터를 name(@포함), type 형태로 나열합니다.
3. input_columns: WHERE/JOIN 조건에서 값이 바인딩되는 컬럼입니다.
   - table: 별칭이 아닌 실제 테이블명 (별칭이면 실제 테이블로 치환)
   - column: 컬럼명
   - parameter: 비교되는 @파라미터명 (없으면 빈 문자열)
   - is_derived: 인라인 뷰(서브쿼리)에서 나온 컬럼이면 true
4. output_columns: SELECT 결과로 반환되는 컬럼입니다.
   - CASE WHEN, ISNULL, CONVERT 같은 계산식이면 계산에 쓰인 실제 컬럼을
     각각 별도 항목으로 기록합니다.
   - table, column, is_derived 필드는 input_columns와 동일한 규칙입니다.
5. tables: 접근하는 모든 테이블입니다.
   - name: 테이블명 (dbo. 같은 스키마 접두사는 제거)
   - alias: 별칭 (없으면 빈 문자열)
   - is_derived: 인라인 뷰면 true (name에는 별칭을 사용)
6. 테이블명과 컬럼명에서 대괄호 []와 dbo. 접두사는 모두 제거합니다.
7. WITH (NOLOCK) 같은 락 힌트는 테이블명에 포함하지 않습니다.

반드시 아래 JSON 형식으로만 답하세요. JSON 외의 텍스트를 출력하지 마세요.
{
  "description": "...",
  "parameters": [{"name": "@...", "type": "..."}],
  "input_columns": [{"table": "...", "column": "...", "parameter": "...", "is_derived": false}],
  "output_columns": [{"table": "...", "column": "...", "is_derived": false}],
  "tables": [{"name": "...", "alias": "...", "is_derived": false}]
}
`
